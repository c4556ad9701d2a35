package pg

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type tokenRepo struct{ pool *pgxpool.Pool }

const tokenCols = `id, identity_id, email, kind, token_hash, expires_at, used_at, created_at`

func scanToken(row interface{ Scan(...any) error }) (*repository.Token, error) {
	var t repository.Token
	err := row.Scan(&t.ID, &t.IdentityID, &t.Email, &t.Kind, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r tokenRepo) Create(ctx context.Context, in repository.CreateTokenInput) (*repository.Token, error) {
	const q = `
INSERT INTO auth_tokens (id, identity_id, email, kind, token_hash, expires_at)
VALUES (gen_random_uuid(), $1, LOWER($2), $3, $4, $5)
RETURNING ` + tokenCols
	return scanToken(r.pool.QueryRow(ctx, q, in.IdentityID, in.Email, in.Kind, in.TokenHash, in.ExpiresAt.UTC()))
}

func (r tokenRepo) GetByHash(ctx context.Context, kind repository.TokenKind, hash string) (*repository.Token, error) {
	return scanToken(r.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM auth_tokens WHERE kind = $1 AND token_hash = $2`, kind, hash))
}

// Consume abre una transacción, gana el CAS con un update condicional y
// aplica effect antes del commit. Si effect falla se hace rollback y el
// token queda canjeable; de dos consumos concurrentes exactamente uno ve
// RowsAffected()==1.
func (r tokenRepo) Consume(ctx context.Context, kind repository.TokenKind, hash string, now time.Time, effect func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	const q = `
UPDATE auth_tokens SET used_at = $3
WHERE kind = $1 AND token_hash = $2 AND used_at IS NULL AND expires_at > $3`
	tag, err := tx.Exec(ctx, q, kind, hash, now.UTC())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	if effect != nil {
		if err := effect(ctx); err != nil {
			return err
		}
	}
	return mapErr(tx.Commit(ctx))
}

func (r tokenRepo) InvalidateActive(ctx context.Context, kind repository.TokenKind, identityID string, now time.Time) (int, error) {
	const q = `
UPDATE auth_tokens SET used_at = $3
WHERE kind = $1 AND identity_id = $2 AND used_at IS NULL AND expires_at > $3`
	tag, err := r.pool.Exec(ctx, q, kind, identityID, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r tokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
