package repository

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/rbac"
)

// MemberStatus es el estado de ciclo de vida de una membresía.
type MemberStatus string

const (
	MemberPending   MemberStatus = "PENDING"
	MemberActive    MemberStatus = "ACTIVE"
	MemberSuspended MemberStatus = "SUSPENDED"
	MemberInvited   MemberStatus = "INVITED"
)

// TenantUser representa la membresía de una identidad dentro de un tenant.
// Invariante: exactamente una fila por par (identity, tenant).
type TenantUser struct {
	ID               string
	IdentityID       string
	TenantID         string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Role             rbac.Role
	Status           MemberStatus
	EmailVerified    bool
	TwoFactorEnabled bool
	TwoFactorSecret  string // base32, vacío si 2FA no está configurado
	TwoFactorBackup  []string // hashes SHA-256 de los códigos de respaldo vigentes
	LastLogin        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateMemberInput contiene los datos para crear una membresía.
type CreateMemberInput struct {
	IdentityID    string
	TenantID      string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Role          rbac.Role
	Status        MemberStatus
	EmailVerified bool
}

// UpdateMemberInput campos actualizables de perfil.
type UpdateMemberInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// MemberRepository define operaciones sobre membresías (tenant_users).
// Las membresías nunca se borran: la suspensión es el estado terminal de baja.
type MemberRepository interface {
	// Create crea una membresía.
	// Retorna ErrConflict si ya existe una para (identity, tenant) o para
	// el mismo email dentro del tenant.
	Create(ctx context.Context, in CreateMemberInput) (*TenantUser, error)

	// GetByID busca una membresía por su UUID.
	GetByID(ctx context.Context, memberID string) (*TenantUser, error)

	// GetByIdentity busca la membresía de una identidad.
	// Retorna ErrNotFound si la identidad no pertenece a ningún tenant.
	GetByIdentity(ctx context.Context, identityID string) (*TenantUser, error)

	// GetByEmail busca una membresía por email dentro de un tenant.
	GetByEmail(ctx context.Context, tenantID, email string) (*TenantUser, error)

	// List lista las membresías de un tenant.
	List(ctx context.Context, tenantID string) ([]TenantUser, error)

	// Update actualiza campos de perfil.
	Update(ctx context.Context, memberID string, in UpdateMemberInput) error

	// SetStatus cambia el estado de la membresía.
	SetStatus(ctx context.Context, memberID string, status MemberStatus) error

	// SetRole cambia el rol de la membresía.
	SetRole(ctx context.Context, memberID string, role rbac.Role) error

	// Activate marca status=ACTIVE y email_verified=true en una sola escritura.
	// Solo promueve membresías PENDING o INVITED: una SUSPENDED nunca se
	// reactiva por esta vía. ErrNotFound si no hay membresía promovible.
	Activate(ctx context.Context, identityID string) error

	// TouchLastLogin actualiza last_login al instante actual.
	TouchLastLogin(ctx context.Context, identityID string, at time.Time) error

	// SetTwoFactor guarda el secreto TOTP y habilita/deshabilita 2FA.
	SetTwoFactor(ctx context.Context, memberID, secretB32 string, enabled bool) error

	// SetBackupCodes reemplaza los códigos de respaldo (se guardan hashes).
	SetBackupCodes(ctx context.Context, memberID string, hashes []string) error

	// UseBackupCode consume un código de respaldo por su hash; un código
	// usado desaparece. Retorna ErrNotFound si el hash no está vigente.
	UseBackupCode(ctx context.Context, memberID, hash string) error
}
