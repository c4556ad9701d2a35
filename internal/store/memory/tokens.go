package memory

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/google/uuid"
)

type tokenRepo struct{ s *Store }

func (r tokenRepo) Create(ctx context.Context, in repository.CreateTokenInput) (*repository.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := &repository.Token{
		ID:         uuid.NewString(),
		IdentityID: in.IdentityID,
		Email:      normEmail(in.Email),
		Kind:       in.Kind,
		TokenHash:  in.TokenHash,
		ExpiresAt:  in.ExpiresAt.UTC(),
		CreatedAt:  nowUTC(),
	}
	r.s.tokens[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (r tokenRepo) GetByHash(ctx context.Context, kind repository.TokenKind, hash string) (*repository.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.Kind == kind && t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Consume emula el CAS del driver pg: bajo el mutex marca used_at solo si el
// token sigue vivo, suelta el lock para correr effect (que puede volver a
// entrar al store) y revierte la marca si effect falla.
func (r tokenRepo) Consume(ctx context.Context, kind repository.TokenKind, hash string, now time.Time, effect func(ctx context.Context) error) error {
	r.s.mu.Lock()
	var rec *repository.Token
	for _, t := range r.s.tokens {
		if t.Kind == kind && t.TokenHash == hash {
			rec = t
			break
		}
	}
	if rec == nil || rec.UsedAt != nil || !now.Before(rec.ExpiresAt) {
		r.s.mu.Unlock()
		return repository.ErrNotFound
	}
	at := now.UTC()
	rec.UsedAt = &at // gana el CAS
	r.s.mu.Unlock()

	if effect != nil {
		if err := effect(ctx); err != nil {
			// rollback: el token vuelve a ser canjeable
			r.s.mu.Lock()
			rec.UsedAt = nil
			r.s.mu.Unlock()
			return err
		}
	}
	return nil
}

func (r tokenRepo) InvalidateActive(ctx context.Context, kind repository.TokenKind, identityID string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	at := now.UTC()
	n := 0
	for _, t := range r.s.tokens {
		if t.Kind == kind && t.IdentityID == identityID && t.UsedAt == nil && now.Before(t.ExpiresAt) {
			used := at
			t.UsedAt = &used
			n++
		}
	}
	return n, nil
}

func (r tokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, t := range r.s.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}
