package pg

import (
	"context"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type tenantRepo struct{ pool *pgxpool.Pool }

func (r tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	const q = `
INSERT INTO tenants (id, name, slug, domain, logo_url, settings)
VALUES (gen_random_uuid(), $1, $2, NULLIF($3,''), NULLIF($4,''), COALESCE($5,'{}'::jsonb))
RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, t.Name, t.Slug, t.Domain, t.LogoURL, t.Settings).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

const tenantCols = `id, name, slug, COALESCE(domain,''), COALESCE(logo_url,''), settings, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*repository.Tenant, error) {
	var t repository.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Domain, &t.LogoURL, &t.Settings, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants WHERE id = $1`, id))
}

func (r tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants WHERE slug = $1`, slug))
}

func (r tenantRepo) Update(ctx context.Context, t *repository.Tenant) error {
	const q = `
UPDATE tenants
SET name = $2, domain = NULLIF($3,''), logo_url = NULLIF($4,''), settings = COALESCE($5,'{}'::jsonb), updated_at = now()
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, t.ID, t.Name, t.Domain, t.LogoURL, t.Settings)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
