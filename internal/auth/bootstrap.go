package auth

import (
	"context"
	"fmt"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rbac"
	tokens "github.com/appercydev/uinbox/internal/security/token"
)

// PlatformSlug es el tenant reservado que aloja a los SUPER_ADMIN.
const PlatformSlug = "platform"

// BootstrapResult es la salida del alta de SUPER_ADMIN. El password temporal
// se imprime una sola vez; el primer login pasa por el link de reset.
type BootstrapResult struct {
	Member       *repository.TenantUser
	TempPassword string
	ResetLink    string
}

// BootstrapSuperAdmin crea (si hace falta) el tenant de plataforma y da de
// alta un SUPER_ADMIN con password temporal aleatorio y un token de reset.
// La membresía nace PENDING; Reset la activa al rotar el password.
// Operación de CLI, no expuesta por HTTP.
func (s *Service) BootstrapSuperAdmin(ctx context.Context, email, firstName, lastName string) (*BootstrapResult, error) {
	tenant, err := s.deps.Store.Tenants().GetBySlug(ctx, PlatformSlug)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("auth: platform tenant lookup: %w", err)
		}
		tenant = &repository.Tenant{Name: "Platform", Slug: PlatformSlug}
		if err := s.deps.Store.Tenants().Create(ctx, tenant); err != nil {
			return nil, fmt.Errorf("auth: create platform tenant: %w", err)
		}
	}

	temp, err := tokens.NewOpaque(18)
	if err != nil {
		return nil, fmt.Errorf("auth: temp password: %w", err)
	}
	id, err := s.deps.Identities.Create(ctx, email, temp)
	if err != nil {
		return nil, err
	}
	member, err := s.deps.Store.Members().Create(ctx, repository.CreateMemberInput{
		IdentityID:    id.ID,
		TenantID:      tenant.ID,
		FirstName:     firstName,
		LastName:      lastName,
		Email:         id.Email,
		Role:          rbac.RoleSuperAdmin,
		Status:        repository.MemberPending,
		EmailVerified: false,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: create superadmin membership: %w", err)
	}

	issued, err := s.deps.Tokens.Issue(ctx, id.ID, id.Email, repository.TokenPasswordReset)
	if err != nil {
		return nil, fmt.Errorf("auth: reset token: %w", err)
	}
	logger.From(ctx).Info("superadmin bootstrapped",
		logger.Component("auth"), logger.MemberID(member.ID), logger.Email(id.Email))
	return &BootstrapResult{Member: member, TempPassword: temp, ResetLink: issued.Link}, nil
}
