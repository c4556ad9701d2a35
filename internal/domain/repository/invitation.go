package repository

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/rbac"
)

// InvitationStatus es el estado persistido de una invitación.
// ACCEPTED, EXPIRED y CANCELLED son terminales.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationExpired   InvitationStatus = "EXPIRED"
	InvitationCancelled InvitationStatus = "CANCELLED"
)

// Invitation representa una invitación de equipo pendiente o resuelta.
// La validez efectiva se deriva de {used_at, expires_at, status} en un solo
// lugar (tokenflow.StateOf); status existe además porque la UI lista
// invitaciones con su estado histórico.
type Invitation struct {
	ID          string
	TenantID    string
	InvitedByID string // member id del invitador
	Email       string
	Role        rbac.Role
	TokenHash   string
	Status      InvitationStatus
	ExpiresAt   time.Time
	UsedAt      *time.Time
	AcceptedAt  *time.Time
	CreatedAt   time.Time
}

// CreateInvitationInput contiene los datos para crear una invitación.
type CreateInvitationInput struct {
	TenantID    string
	InvitedByID string
	Email       string
	Role        rbac.Role
	TokenHash   string
	ExpiresAt   time.Time
}

// InvitationRepository define operaciones sobre invitaciones.
type InvitationRepository interface {
	// Create persiste una invitación PENDING.
	Create(ctx context.Context, in CreateInvitationInput) (*Invitation, error)

	// GetByID busca una invitación por UUID.
	GetByID(ctx context.Context, id string) (*Invitation, error)

	// GetByHash busca una invitación por el hash de su token.
	GetByHash(ctx context.Context, hash string) (*Invitation, error)

	// List lista las invitaciones de un tenant, más recientes primero.
	List(ctx context.Context, tenantID string) ([]Invitation, error)

	// Accept marca la invitación ACCEPTED (used_at + accepted_at) y aplica
	// effect de forma transaccional, con las mismas garantías que
	// TokenRepository.Consume: el update es condicional sobre
	// status=PENDING AND used_at IS NULL AND expires_at > now.
	Accept(ctx context.Context, hash string, now time.Time, effect func(ctx context.Context) error) error

	// Cancel transiciona PENDING→CANCELLED. Idempotente: cancelar una
	// invitación ya CANCELLED no es error ni cambia nada. Cancelar una
	// ACCEPTED retorna ErrConflict.
	Cancel(ctx context.Context, id string, now time.Time) error

	// Renew instala un token nuevo con expiry nuevo y fuerza status=PENDING.
	// Lo usa resend; el token anterior deja de existir (hash reemplazado).
	Renew(ctx context.Context, id, newHash string, expiresAt time.Time, now time.Time) error

	// DeleteExpired marca EXPIRED las invitaciones PENDING vencidas.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
