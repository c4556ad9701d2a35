package repository

import (
	"context"
	"time"
)

// Tenant representa una organización (boundary de aislamiento multi-tenant).
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Domain    string
	LogoURL   string
	Settings  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantRepository define operaciones sobre tenants.
type TenantRepository interface {
	// Create crea un nuevo tenant.
	// Retorna ErrConflict si el slug ya existe.
	Create(ctx context.Context, t *Tenant) error

	// GetByID busca un tenant por su UUID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// GetBySlug busca un tenant por su slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// Update actualiza nombre/settings de un tenant existente.
	Update(ctx context.Context, t *Tenant) error
}
