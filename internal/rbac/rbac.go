// Package rbac es la única fuente de verdad de autorización: un mapeo fijo
// rol → capacidades. Ningún handler debe comparar roles a mano; siempre
// consultar PermissionsFor.
package rbac

import "strings"

// Role es el rol de una membresía. Enum cerrado de cinco valores.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleTenantOwner   Role = "TENANT_OWNER"
	RoleTenantAdmin   Role = "TENANT_ADMIN"
	RoleTenantManager Role = "TENANT_MANAGER"
	RoleTenantUser    Role = "TENANT_USER"
)

// InvitableRoles son los roles que se pueden asignar vía invitación.
// OWNER solo se obtiene por signup; SUPER_ADMIN solo por bootstrap.
var InvitableRoles = []Role{RoleTenantAdmin, RoleTenantManager, RoleTenantUser}

// Valid reporta si r es uno de los cinco roles conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantOwner, RoleTenantAdmin, RoleTenantManager, RoleTenantUser:
		return true
	}
	return false
}

// Invitable reporta si r puede asignarse a un invitado.
func (r Role) Invitable() bool {
	for _, v := range InvitableRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole normaliza un string a Role. No valida; combinar con Valid().
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// Permission es el set fijo de capacidades de un rol.
type Permission struct {
	CanViewUsers          bool
	CanManageUsers        bool
	CanViewChats          bool
	CanManageChats        bool
	CanViewAllChats       bool
	CanAssignChats        bool
	CanManageBilling      bool
	CanManageIntegrations bool
	CanManageOrganization bool
	CanInviteUsers        bool
	CanViewAnalytics      bool
}

// matrix: valores fijos por rol. Jerarquía informativa:
// SUPER_ADMIN > TENANT_OWNER > TENANT_ADMIN > TENANT_MANAGER > TENANT_USER.
var matrix = map[Role]Permission{
	RoleSuperAdmin: {
		CanViewUsers:          true,
		CanManageUsers:        true,
		CanViewChats:          true,
		CanManageChats:        true,
		CanViewAllChats:       true,
		CanAssignChats:        true,
		CanManageBilling:      true,
		CanManageIntegrations: true,
		CanManageOrganization: true,
		CanInviteUsers:        true,
		CanViewAnalytics:      true,
	},
	RoleTenantOwner: {
		CanViewUsers:          true,
		CanManageUsers:        true,
		CanManageBilling:      true,
		CanManageIntegrations: true,
		CanManageOrganization: true,
		CanInviteUsers:        true,
		CanViewAnalytics:      true,
	},
	RoleTenantAdmin: {
		CanViewUsers:          true,
		CanManageIntegrations: true,
		CanViewAnalytics:      true,
	},
	RoleTenantManager: {
		CanViewUsers:    true,
		CanViewChats:    true,
		CanViewAllChats: true,
		CanAssignChats:  true,
	},
	RoleTenantUser: {
		CanViewChats: true,
	},
}

// PermissionsFor retorna las capacidades del rol. Lookup total: un rol
// desconocido cae al set de TENANT_USER (fail-closed), nunca a error ni a
// permisos abiertos.
func PermissionsFor(role Role) Permission {
	if p, ok := matrix[role]; ok {
		return p
	}
	return matrix[RoleTenantUser]
}

// Capability identifica una capacidad por nombre, para middleware/gating.
type Capability func(Permission) bool

// Capacidades nombradas para usar con Allowed / RequirePermission.
var (
	ViewUsers          Capability = func(p Permission) bool { return p.CanViewUsers }
	ManageUsers        Capability = func(p Permission) bool { return p.CanManageUsers }
	ViewChats          Capability = func(p Permission) bool { return p.CanViewChats }
	ManageChats        Capability = func(p Permission) bool { return p.CanManageChats }
	ViewAllChats       Capability = func(p Permission) bool { return p.CanViewAllChats }
	AssignChats        Capability = func(p Permission) bool { return p.CanAssignChats }
	ManageBilling      Capability = func(p Permission) bool { return p.CanManageBilling }
	ManageIntegrations Capability = func(p Permission) bool { return p.CanManageIntegrations }
	ManageOrganization Capability = func(p Permission) bool { return p.CanManageOrganization }
	InviteUsers        Capability = func(p Permission) bool { return p.CanInviteUsers }
	ViewAnalytics      Capability = func(p Permission) bool { return p.CanViewAnalytics }
)

// Allowed reporta si el rol tiene la capacidad dada.
func Allowed(role Role, cap Capability) bool {
	return cap(PermissionsFor(role))
}
