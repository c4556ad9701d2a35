package memory

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/google/uuid"
)

type identityRepo struct{ s *Store }

func (r identityRepo) Create(ctx context.Context, email, passwordHash string) (*repository.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = normEmail(email)
	for _, id := range r.s.identities {
		if id.Email == email {
			return nil, repository.ErrConflict
		}
	}
	now := nowUTC()
	rec := &repository.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.identities[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (r identityRepo) GetByID(ctx context.Context, id string) (*repository.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec, ok := r.s.identities[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r identityRepo) GetByEmail(ctx context.Context, email string) (*repository.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = normEmail(email)
	for _, rec := range r.s.identities {
		if rec.Email == email {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r identityRepo) SetPasswordHash(ctx context.Context, id, newHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.PasswordHash = newHash
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r identityRepo) SetEmailConfirmed(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := at.UTC()
	rec.EmailConfirmedAt = &t
	rec.UpdatedAt = time.Now().UTC()
	return nil
}
