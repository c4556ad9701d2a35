package rbac

import "testing"

func TestPermissionsFor_FixedMatrix(t *testing.T) {
	cases := []struct {
		role Role
		want Permission
	}{
		{RoleSuperAdmin, Permission{
			CanViewUsers: true, CanManageUsers: true, CanViewChats: true,
			CanManageChats: true, CanViewAllChats: true, CanAssignChats: true,
			CanManageBilling: true, CanManageIntegrations: true,
			CanManageOrganization: true, CanInviteUsers: true, CanViewAnalytics: true,
		}},
		{RoleTenantOwner, Permission{
			CanViewUsers: true, CanManageUsers: true,
			CanManageBilling: true, CanManageIntegrations: true,
			CanManageOrganization: true, CanInviteUsers: true, CanViewAnalytics: true,
		}},
		{RoleTenantAdmin, Permission{
			CanViewUsers: true, CanManageIntegrations: true, CanViewAnalytics: true,
		}},
		{RoleTenantManager, Permission{
			CanViewUsers: true, CanViewChats: true, CanViewAllChats: true, CanAssignChats: true,
		}},
		{RoleTenantUser, Permission{CanViewChats: true}},
	}
	for _, c := range cases {
		if got := PermissionsFor(c.role); got != c.want {
			t.Errorf("PermissionsFor(%s) = %+v, want %+v", c.role, got, c.want)
		}
	}
}

func TestPermissionsFor_UnknownRoleFailsClosed(t *testing.T) {
	// Un rol desconocido cae al set de TENANT_USER, nunca abre permisos.
	for _, r := range []Role{"", "ROOT", "tenant_owner", "ADMIN"} {
		if got := PermissionsFor(r); got != PermissionsFor(RoleTenantUser) {
			t.Errorf("PermissionsFor(%q) = %+v, want TENANT_USER set", r, got)
		}
	}
}

func TestAllowed(t *testing.T) {
	if !Allowed(RoleTenantOwner, InviteUsers) {
		t.Error("owner should be able to invite")
	}
	if Allowed(RoleTenantAdmin, InviteUsers) {
		t.Error("admin must not invite")
	}
	if Allowed(RoleTenantUser, ViewUsers) {
		t.Error("tenant user must not view users")
	}
	if !Allowed(RoleTenantManager, AssignChats) {
		t.Error("manager should assign chats")
	}
}

func TestRoleHelpers(t *testing.T) {
	if ParseRole(" tenant_manager ") != RoleTenantManager {
		t.Error("ParseRole should normalize case and spaces")
	}
	if Role("ROOT").Valid() {
		t.Error("unknown role must not be valid")
	}
	if RoleTenantOwner.Invitable() {
		t.Error("OWNER is not invitable")
	}
	if !RoleTenantUser.Invitable() {
		t.Error("TENANT_USER is invitable")
	}
}
