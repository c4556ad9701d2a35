package repository

import (
	"context"
	"time"
)

// TokenKind indica el propósito de un token de un solo uso.
type TokenKind string

const (
	TokenEmailConfirmation TokenKind = "email_confirmation"
	TokenPasswordReset     TokenKind = "password_reset"
)

// Token representa un token opaco de un solo uso (confirmación de email o
// password reset). Solo se persiste el hash SHA-256 del valor; el valor en
// claro viaja únicamente en el link del email.
type Token struct {
	ID         string
	IdentityID string
	Email      string
	Kind       TokenKind
	TokenHash  string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

// CreateTokenInput contiene los datos para persistir un token.
type CreateTokenInput struct {
	IdentityID string
	Email      string
	Kind       TokenKind
	TokenHash  string
	ExpiresAt  time.Time
}

// TokenRepository define operaciones sobre tokens de confirmación/reset.
type TokenRepository interface {
	// Create persiste un token nuevo.
	Create(ctx context.Context, in CreateTokenInput) (*Token, error)

	// GetByHash busca un token por su hash, sin importar su estado.
	// Retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, kind TokenKind, hash string) (*Token, error)

	// Consume marca el token como usado y aplica effect de forma transaccional:
	// ambos se confirman o ninguno. El update de used_at es condicional
	// (used_at IS NULL AND expires_at > now), así que de dos consumos
	// concurrentes exactamente uno gana; el perdedor recibe ErrNotFound.
	// Si effect falla, el token queda sin consumir para poder reintentar.
	Consume(ctx context.Context, kind TokenKind, hash string, now time.Time, effect func(ctx context.Context) error) error

	// InvalidateActive marca como usados todos los tokens vivos del mismo
	// owner/kind. Lo usa reissue para que nunca haya dos tokens válidos
	// simultáneos con el mismo propósito.
	InvalidateActive(ctx context.Context, kind TokenKind, identityID string, now time.Time) (int, error)

	// DeleteExpired elimina tokens vencidos (housekeeping operado por CLI).
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
