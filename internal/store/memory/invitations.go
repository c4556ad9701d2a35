package memory

import (
	"context"
	"sort"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/google/uuid"
)

type invitationRepo struct{ s *Store }

func (r invitationRepo) Create(ctx context.Context, in repository.CreateInvitationInput) (*repository.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := normEmail(in.Email)
	// misma regla que el índice único parcial de postgres: a lo sumo una
	// invitación PENDING por (tenant, email)
	for _, inv := range r.s.invitations {
		if inv.TenantID == in.TenantID && inv.Email == email && inv.Status == repository.InvitationPending {
			return nil, repository.ErrConflict
		}
	}
	rec := &repository.Invitation{
		ID:          uuid.NewString(),
		TenantID:    in.TenantID,
		InvitedByID: in.InvitedByID,
		Email:       email,
		Role:        in.Role,
		TokenHash:   in.TokenHash,
		Status:      repository.InvitationPending,
		ExpiresAt:   in.ExpiresAt.UTC(),
		CreatedAt:   nowUTC(),
	}
	r.s.invitations[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (r invitationRepo) GetByID(ctx context.Context, id string) (*repository.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv, ok := r.s.invitations[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r invitationRepo) GetByHash(ctx context.Context, hash string) (*repository.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if inv.TokenHash == hash {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r invitationRepo) List(ctx context.Context, tenantID string) ([]repository.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.Invitation
	for _, inv := range r.s.invitations {
		if inv.TenantID == tenantID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Accept: mismo esquema CAS + rollback que tokenRepo.Consume.
func (r invitationRepo) Accept(ctx context.Context, hash string, now time.Time, effect func(ctx context.Context) error) error {
	r.s.mu.Lock()
	var rec *repository.Invitation
	for _, inv := range r.s.invitations {
		if inv.TokenHash == hash {
			rec = inv
			break
		}
	}
	if rec == nil || rec.Status != repository.InvitationPending || rec.UsedAt != nil || !now.Before(rec.ExpiresAt) {
		r.s.mu.Unlock()
		return repository.ErrNotFound
	}
	at := now.UTC()
	rec.Status = repository.InvitationAccepted
	rec.UsedAt = &at
	rec.AcceptedAt = &at
	r.s.mu.Unlock()

	if effect != nil {
		if err := effect(ctx); err != nil {
			// rollback: la invitación vuelve a PENDING y sigue canjeable
			r.s.mu.Lock()
			rec.Status = repository.InvitationPending
			rec.UsedAt = nil
			rec.AcceptedAt = nil
			r.s.mu.Unlock()
			return err
		}
	}
	return nil
}

func (r invitationRepo) Cancel(ctx context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.invitations[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch rec.Status {
	case repository.InvitationCancelled:
		return nil // idempotente
	case repository.InvitationPending:
		// used_at queda NULL: el estado derivado debe ser CANCELLED, no
		// CONSUMED, y el flag de status alcanza para matar el token
		rec.Status = repository.InvitationCancelled
		return nil
	default:
		return repository.ErrConflict
	}
}

func (r invitationRepo) Renew(ctx context.Context, id, newHash string, expiresAt time.Time, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.invitations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.Status == repository.InvitationAccepted {
		return repository.ErrConflict
	}
	rec.TokenHash = newHash
	rec.ExpiresAt = expiresAt.UTC()
	rec.Status = repository.InvitationPending
	rec.UsedAt = nil
	rec.AcceptedAt = nil
	return nil
}

func (r invitationRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, inv := range r.s.invitations {
		if inv.Status == repository.InvitationPending && inv.ExpiresAt.Before(before) {
			inv.Status = repository.InvitationExpired
			n++
		}
	}
	return n, nil
}
