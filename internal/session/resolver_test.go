package session_test

import (
	"context"
	"testing"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/appercydev/uinbox/internal/session"
	"github.com/appercydev/uinbox/internal/store/memory"
)

func TestCurrentUserResolvesFullChain(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := session.NewResolver(store)

	tenant := &repository.Tenant{Name: "Acme", Slug: "acme"}
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	id, err := store.Identities().Create(ctx, "owner@acme.com", "phc")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if _, err := store.Members().Create(ctx, repository.CreateMemberInput{
		IdentityID: id.ID, TenantID: tenant.ID, Email: id.Email,
		Role: rbac.RoleTenantOwner, Status: repository.MemberActive,
	}); err != nil {
		t.Fatalf("member: %v", err)
	}

	sess, err := r.CurrentUser(ctx, id.ID)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session")
	}
	if sess.Tenant.Slug != "acme" || sess.Member.Role != rbac.RoleTenantOwner {
		t.Fatalf("wrong session: %+v", sess)
	}
	if !sess.Can(rbac.InviteUsers) {
		t.Error("owner session should be able to invite")
	}
	if sess.Can(rbac.ViewChats) {
		t.Error("owner has no chat view permission")
	}
}

func TestCurrentUserMissingLinksYieldNone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := session.NewResolver(store)

	// identidad inexistente
	if sess, err := r.CurrentUser(ctx, "nope"); err != nil || sess != nil {
		t.Fatalf("unknown identity: (%v, %v), want (nil, nil)", sess, err)
	}
	// id vacío
	if sess, err := r.CurrentUser(ctx, ""); err != nil || sess != nil {
		t.Fatalf("empty id: (%v, %v), want (nil, nil)", sess, err)
	}
	// identidad sin membresía
	id, err := store.Identities().Create(ctx, "orphan@example.com", "phc")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if sess, err := r.CurrentUser(ctx, id.ID); err != nil || sess != nil {
		t.Fatalf("identity without membership: (%v, %v), want (nil, nil)", sess, err)
	}
}

func TestNilSessionCanNothing(t *testing.T) {
	var sess *session.Session
	if sess.Can(rbac.ViewUsers) {
		t.Fatal("nil session must not pass any capability")
	}
}
