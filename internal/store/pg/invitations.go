package pg

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type invitationRepo struct{ pool *pgxpool.Pool }

const invitationCols = `id, tenant_id, invited_by, email, role, token_hash, status,
expires_at, used_at, accepted_at, created_at`

func scanInvitation(row interface{ Scan(...any) error }) (*repository.Invitation, error) {
	var inv repository.Invitation
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.InvitedByID, &inv.Email, &inv.Role, &inv.TokenHash, &inv.Status,
		&inv.ExpiresAt, &inv.UsedAt, &inv.AcceptedAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (r invitationRepo) Create(ctx context.Context, in repository.CreateInvitationInput) (*repository.Invitation, error) {
	const q = `
INSERT INTO user_invitations (id, tenant_id, invited_by, email, role, token_hash, status, expires_at)
VALUES (gen_random_uuid(), $1, $2, LOWER($3), $4, $5, $6, $7)
RETURNING ` + invitationCols
	return scanInvitation(r.pool.QueryRow(ctx, q,
		in.TenantID, in.InvitedByID, in.Email, in.Role, in.TokenHash,
		repository.InvitationPending, in.ExpiresAt.UTC()))
}

func (r invitationRepo) GetByID(ctx context.Context, id string) (*repository.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationCols+` FROM user_invitations WHERE id = $1`, id))
}

func (r invitationRepo) GetByHash(ctx context.Context, hash string) (*repository.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationCols+` FROM user_invitations WHERE token_hash = $1`, hash))
}

func (r invitationRepo) List(ctx context.Context, tenantID string) ([]repository.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationCols+` FROM user_invitations WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, mapErr(rows.Err())
}

// Accept usa el mismo esquema transaccional que tokenRepo.Consume: update
// condicional sobre PENDING + effect + commit, rollback si effect falla.
func (r invitationRepo) Accept(ctx context.Context, hash string, now time.Time, effect func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	const q = `
UPDATE user_invitations SET status = $3, used_at = $4, accepted_at = $4
WHERE token_hash = $1 AND status = $2 AND used_at IS NULL AND expires_at > $4`
	tag, err := tx.Exec(ctx, q, hash,
		repository.InvitationPending, repository.InvitationAccepted, now.UTC())
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

func (r invitationRepo) Cancel(ctx context.Context, id string, now time.Time) error {
	inv, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch inv.Status {
	case repository.InvitationCancelled:
		return nil // idempotente
	case repository.InvitationPending:
		// used_at queda NULL: el estado derivado debe ser CANCELLED, no
		// CONSUMED, y el flag de status alcanza para matar el token
		const q = `
UPDATE user_invitations SET status = $2
WHERE id = $1 AND status = $3`
		tag, err := r.pool.Exec(ctx, q, id,
			repository.InvitationCancelled, repository.InvitationPending)
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			// otro actor ganó la carrera (aceptada o cancelada en paralelo)
			return repository.ErrConflict
		}
		return nil
	default:
		return repository.ErrConflict
	}
}

func (r invitationRepo) Renew(ctx context.Context, id, newHash string, expiresAt time.Time, now time.Time) error {
	const q = `
UPDATE user_invitations
SET token_hash = $2, expires_at = $3, status = $4, used_at = NULL, accepted_at = NULL
WHERE id = $1 AND status <> $5`
	tag, err := r.pool.Exec(ctx, q, id, newHash, expiresAt.UTC(),
		repository.InvitationPending, repository.InvitationAccepted)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return repository.ErrConflict
	}
	return nil
}

func (r invitationRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	const q = `
UPDATE user_invitations SET status = $2
WHERE status = $1 AND expires_at < $3`
	tag, err := r.pool.Exec(ctx, q,
		repository.InvitationPending, repository.InvitationExpired, before.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
