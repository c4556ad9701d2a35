package pg

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type identityRepo struct{ pool *pgxpool.Pool }

const identityCols = `id, email, email_confirmed_at, password_hash, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (*repository.Identity, error) {
	var id repository.Identity
	err := row.Scan(&id.ID, &id.Email, &id.EmailConfirmedAt, &id.PasswordHash, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &id, nil
}

func (r identityRepo) Create(ctx context.Context, email, passwordHash string) (*repository.Identity, error) {
	const q = `
INSERT INTO identities (id, email, password_hash)
VALUES (gen_random_uuid(), LOWER($1), $2)
RETURNING ` + identityCols
	return scanIdentity(r.pool.QueryRow(ctx, q, email, passwordHash))
}

func (r identityRepo) GetByID(ctx context.Context, id string) (*repository.Identity, error) {
	return scanIdentity(r.pool.QueryRow(ctx, `SELECT `+identityCols+` FROM identities WHERE id = $1`, id))
}

func (r identityRepo) GetByEmail(ctx context.Context, email string) (*repository.Identity, error) {
	return scanIdentity(r.pool.QueryRow(ctx, `SELECT `+identityCols+` FROM identities WHERE email = LOWER($1)`, email))
}

func (r identityRepo) SetPasswordHash(ctx context.Context, id, newHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1`, id, newHash)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r identityRepo) SetEmailConfirmed(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE identities SET email_confirmed_at = $2, updated_at = now() WHERE id = $1`, id, at.UTC())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
