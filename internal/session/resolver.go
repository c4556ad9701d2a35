// Package session resuelve la identidad autenticada a su vista completa:
// identidad + membresía + tenant + permisos efectivos. Es la única pieza que
// junta las tres tablas; los handlers consumen el resultado ya resuelto.
package session

import (
	"context"
	"fmt"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rbac"
)

// Session es la vista resuelta de un usuario autenticado.
type Session struct {
	Identity    *repository.Identity
	Member      *repository.TenantUser
	Tenant      *repository.Tenant
	Permissions rbac.Permission
}

// Resolver arma sesiones a partir del identity id del token.
type Resolver struct {
	store repository.Store
}

func NewResolver(store repository.Store) *Resolver {
	return &Resolver{store: store}
}

// CurrentUser resuelve identity → membresía → tenant. Cualquier eslabón
// ausente produce (nil, nil): sesión inexistente no es un error, es la
// respuesta. Solo fallas reales del datastore retornan error.
func (r *Resolver) CurrentUser(ctx context.Context, identityID string) (*Session, error) {
	if identityID == "" {
		return nil, nil
	}
	id, err := r.store.Identities().GetByID(ctx, identityID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: identity lookup: %w", err)
	}
	member, err := r.store.Members().GetByIdentity(ctx, id.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			// identidad sin membresía: típico entre signup y confirmación,
			// o membresía nunca creada
			logger.From(ctx).Debug("identity without membership",
				logger.Component("session"), logger.UserID(id.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("session: membership lookup: %w", err)
	}
	tenant, err := r.store.Tenants().GetByID(ctx, member.TenantID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: tenant lookup: %w", err)
	}
	return &Session{
		Identity:    id,
		Member:      member,
		Tenant:      tenant,
		Permissions: rbac.PermissionsFor(member.Role),
	}, nil
}

// Can evalúa una capability sobre la sesión. Nil session no puede nada.
func (s *Session) Can(cap rbac.Capability) bool {
	if s == nil {
		return false
	}
	return cap(s.Permissions)
}
