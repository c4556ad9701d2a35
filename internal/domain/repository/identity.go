package repository

import (
	"context"
	"time"
)

// Identity representa una identidad de autenticación (credenciales globales,
// independientes del tenant).
type Identity struct {
	ID               string
	Email            string
	EmailConfirmedAt *time.Time
	PasswordHash     string // PHC argon2id
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IdentityRepository define operaciones sobre identidades.
type IdentityRepository interface {
	// Create crea una identidad con password ya hasheado.
	// Retorna ErrConflict si el email ya está registrado.
	Create(ctx context.Context, email, passwordHash string) (*Identity, error)

	// GetByID busca una identidad por UUID.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// GetByEmail busca una identidad por email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// SetPasswordHash reemplaza el hash de password.
	SetPasswordHash(ctx context.Context, id, newHash string) error

	// SetEmailConfirmed marca la identidad como confirmada.
	SetEmailConfirmed(ctx context.Context, id string, at time.Time) error
}
