package pg

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/jackc/pgx/v5/pgxpool"
)

type memberRepo struct{ pool *pgxpool.Pool }

const memberCols = `id, identity_id, tenant_id, first_name, last_name, email, COALESCE(phone,''),
role, status, email_verified, two_factor_enabled, COALESCE(two_factor_secret,''),
COALESCE(backup_codes,'{}'), last_login, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*repository.TenantUser, error) {
	var m repository.TenantUser
	err := row.Scan(
		&m.ID, &m.IdentityID, &m.TenantID, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
		&m.Role, &m.Status, &m.EmailVerified, &m.TwoFactorEnabled, &m.TwoFactorSecret,
		&m.TwoFactorBackup, &m.LastLogin, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r memberRepo) Create(ctx context.Context, in repository.CreateMemberInput) (*repository.TenantUser, error) {
	const q = `
INSERT INTO tenant_users
  (id, identity_id, tenant_id, first_name, last_name, email, phone, role, status, email_verified)
VALUES
  (gen_random_uuid(), $1, $2, $3, $4, LOWER($5), NULLIF($6,''), $7, $8, $9)
RETURNING ` + memberCols
	return scanMember(r.pool.QueryRow(ctx, q,
		in.IdentityID, in.TenantID, in.FirstName, in.LastName, in.Email, in.Phone,
		in.Role, in.Status, in.EmailVerified))
}

func (r memberRepo) GetByID(ctx context.Context, memberID string) (*repository.TenantUser, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberCols+` FROM tenant_users WHERE id = $1`, memberID))
}

func (r memberRepo) GetByIdentity(ctx context.Context, identityID string) (*repository.TenantUser, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberCols+` FROM tenant_users WHERE identity_id = $1`, identityID))
}

func (r memberRepo) GetByEmail(ctx context.Context, tenantID, email string) (*repository.TenantUser, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberCols+` FROM tenant_users WHERE tenant_id = $1 AND email = LOWER($2)`, tenantID, email))
}

func (r memberRepo) List(ctx context.Context, tenantID string) ([]repository.TenantUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberCols+` FROM tenant_users WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.TenantUser
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, mapErr(rows.Err())
}

func (r memberRepo) Update(ctx context.Context, memberID string, in repository.UpdateMemberInput) error {
	const q = `
UPDATE tenant_users
SET first_name = COALESCE($2, first_name),
    last_name  = COALESCE($3, last_name),
    phone      = COALESCE($4, phone),
    updated_at = now()
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, memberID, in.FirstName, in.LastName, in.Phone)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r memberRepo) exec1(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r memberRepo) SetStatus(ctx context.Context, memberID string, status repository.MemberStatus) error {
	return r.exec1(ctx,
		`UPDATE tenant_users SET status = $2, updated_at = now() WHERE id = $1`, memberID, status)
}

func (r memberRepo) SetRole(ctx context.Context, memberID string, role rbac.Role) error {
	return r.exec1(ctx,
		`UPDATE tenant_users SET role = $2, updated_at = now() WHERE id = $1`, memberID, role)
}

func (r memberRepo) Activate(ctx context.Context, identityID string) error {
	// SUSPENDED es terminal: el reset/confirmación nunca lo revierte
	return r.exec1(ctx, `
UPDATE tenant_users SET status = $2, email_verified = TRUE, updated_at = now()
WHERE identity_id = $1 AND status IN ($3, $4)`, identityID,
		repository.MemberActive, repository.MemberPending, repository.MemberInvited)
}

func (r memberRepo) TouchLastLogin(ctx context.Context, identityID string, at time.Time) error {
	return r.exec1(ctx,
		`UPDATE tenant_users SET last_login = $2 WHERE identity_id = $1`, identityID, at.UTC())
}

func (r memberRepo) SetTwoFactor(ctx context.Context, memberID, secretB32 string, enabled bool) error {
	return r.exec1(ctx, `
UPDATE tenant_users SET two_factor_secret = NULLIF($2,''), two_factor_enabled = $3, updated_at = now()
WHERE id = $1`, memberID, secretB32, enabled)
}

func (r memberRepo) SetBackupCodes(ctx context.Context, memberID string, hashes []string) error {
	return r.exec1(ctx, `
UPDATE tenant_users SET backup_codes = $2, updated_at = now()
WHERE id = $1`, memberID, hashes)
}

// UseBackupCode es un CAS: remueve el hash del array solo si está presente.
func (r memberRepo) UseBackupCode(ctx context.Context, memberID, hash string) error {
	return r.exec1(ctx, `
UPDATE tenant_users SET backup_codes = array_remove(backup_codes, $2), updated_at = now()
WHERE id = $1 AND $2 = ANY(backup_codes)`, memberID, hash)
}
