package invites_test

import (
	"context"
	"testing"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/email"
	"github.com/appercydev/uinbox/internal/identity"
	"github.com/appercydev/uinbox/internal/invites"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/appercydev/uinbox/internal/store/memory"
	"github.com/appercydev/uinbox/internal/tokenflow"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []email.Payload
}

func (c *captureSender) Send(ctx context.Context, kind email.Kind, p email.Payload) error {
	c.sent = append(c.sent, p)
	return nil
}

type fixture struct {
	svc    *invites.Service
	store  *memory.Store
	sender *captureSender
	tenant *repository.Tenant
	owner  *repository.TenantUser
	now    time.Time
	clock  *time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	sender := &captureSender{}
	ids := identity.New(store.Identities())

	tenant := &repository.Tenant{Name: "Acme", Slug: "acme"}
	require.NoError(t, store.Tenants().Create(ctx, tenant))

	ownerID, err := ids.Create(ctx, "owner@acme.com", "s3cret-pass")
	require.NoError(t, err)
	owner, err := store.Members().Create(ctx, repository.CreateMemberInput{
		IdentityID: ownerID.ID, TenantID: tenant.ID,
		FirstName: "Ana", LastName: "Gomez", Email: ownerID.Email,
		Role: rbac.RoleTenantOwner, Status: repository.MemberActive, EmailVerified: true,
	})
	require.NoError(t, err)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := invites.New(invites.Deps{
		Store:      store,
		Identities: ids,
		Sender:     sender,
		BaseURL:    "https://console.acme.com",
	})
	svc.WithClock(func() time.Time { return clock })
	return &fixture{svc: svc, store: store, sender: sender, tenant: tenant, owner: owner, now: now, clock: &clock}
}

func (f *fixture) invite(t *testing.T, emailAddr string, role rbac.Role) *invites.Issued {
	t.Helper()
	issued, err := f.svc.Invite(context.Background(), invites.InviteInput{
		TenantID:    f.tenant.ID,
		InvitedByID: f.owner.ID,
		Email:       emailAddr,
		Role:        role,
	})
	require.NoError(t, err)
	return issued
}

func TestInviteCreatesPendingAndNotifies(t *testing.T) {
	f := setup(t)
	issued := f.invite(t, "new@example.com", rbac.RoleTenantManager)

	require.Equal(t, repository.InvitationPending, issued.Invitation.Status)
	require.Equal(t, f.now.Add(tokenflow.InvitationTTL), issued.Invitation.ExpiresAt)
	require.Nil(t, issued.Warning)

	require.Len(t, f.sender.sent, 1)
	p := f.sender.sent[0]
	require.Equal(t, "new@example.com", p.To)
	require.Equal(t, issued.Link, p.Link)
	require.Equal(t, "Acme", p.TenantName)
	require.Equal(t, "Ana Gomez", p.InviterName)
}

func TestInviteRejectsNonInvitableRoles(t *testing.T) {
	f := setup(t)
	for _, role := range []rbac.Role{rbac.RoleTenantOwner, rbac.RoleSuperAdmin, "WHATEVER"} {
		_, err := f.svc.Invite(context.Background(), invites.InviteInput{
			TenantID: f.tenant.ID, InvitedByID: f.owner.ID,
			Email: "x@example.com", Role: role,
		})
		require.ErrorIs(t, err, invites.ErrInvalidRole, "role %s", role)
	}
}

func TestInviteDuplicateMember(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Invite(context.Background(), invites.InviteInput{
		TenantID: f.tenant.ID, InvitedByID: f.owner.ID,
		Email: "OWNER@acme.com", Role: rbac.RoleTenantUser,
	})
	require.ErrorIs(t, err, invites.ErrDuplicateMember)
}

func TestInviteDuplicatePendingInvitation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.invite(t, "new@example.com", rbac.RoleTenantUser)

	// segunda invitación PENDING para el mismo email: la corta el datastore
	_, err := f.svc.Invite(ctx, invites.InviteInput{
		TenantID: f.tenant.ID, InvitedByID: f.owner.ID,
		Email: "NEW@example.com", Role: rbac.RoleTenantManager,
	})
	require.ErrorIs(t, err, invites.ErrDuplicateInvitation)

	// cancelada deja de bloquear
	views, err := f.svc.List(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NoError(t, f.svc.Cancel(ctx, views[0].ID))
	f.invite(t, "new@example.com", rbac.RoleTenantUser)
}

func TestInviteSuspendedMemberAllowed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.Members().SetStatus(ctx, f.owner.ID, repository.MemberSuspended))
	// un miembro suspendido no bloquea re-invitar su email
	_, err := f.svc.Invite(ctx, invites.InviteInput{
		TenantID: f.tenant.ID, InvitedByID: f.owner.ID,
		Email: "owner@acme.com", Role: rbac.RoleTenantUser,
	})
	require.NoError(t, err)
}

func TestAcceptCreatesActiveMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued := f.invite(t, "new@example.com", rbac.RoleTenantAdmin)

	member, err := f.svc.Accept(ctx, issued.Token, invites.AcceptInput{
		FirstName: "Bruno", LastName: "Diaz", Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleTenantAdmin, member.Role)
	require.Equal(t, repository.MemberActive, member.Status)
	require.True(t, member.EmailVerified)
	require.Equal(t, f.tenant.ID, member.TenantID)

	// la identidad quedó con el email confirmado
	id, err := f.store.Identities().GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, id.EmailConfirmedAt)

	// el token es de un solo uso
	_, err = f.svc.Accept(ctx, issued.Token, invites.AcceptInput{Password: "hunter2hunter2"})
	require.ErrorIs(t, err, tokenflow.ErrInvalidToken)

	inv, err := f.store.Invitations().GetByID(ctx, issued.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, repository.InvitationAccepted, inv.Status)
	require.NotNil(t, inv.AcceptedAt)
}

func TestAcceptFailureKeepsTokenUsable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued := f.invite(t, "new@example.com", rbac.RoleTenantUser)

	// password fuera de política: la creación de cuenta falla
	_, err := f.svc.Accept(ctx, issued.Token, invites.AcceptInput{Password: "short"})
	require.ErrorIs(t, err, invites.ErrAccountCreationFailed)

	inv, err := f.store.Invitations().GetByID(ctx, issued.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, repository.InvitationPending, inv.Status)

	// reintento con password válido
	_, err = f.svc.Accept(ctx, issued.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.NoError(t, err)
}

func TestAcceptExpiredInvitation(t *testing.T) {
	f := setup(t)
	issued := f.invite(t, "new@example.com", rbac.RoleTenantUser)
	*f.clock = f.now.Add(tokenflow.InvitationTTL + time.Minute)

	_, err := f.svc.Accept(context.Background(), issued.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.ErrorIs(t, err, tokenflow.ErrInvalidToken)
}

func TestCancelIsIdempotentAndBlocksAccept(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued := f.invite(t, "new@example.com", rbac.RoleTenantUser)

	require.NoError(t, f.svc.Cancel(ctx, issued.Invitation.ID))
	require.NoError(t, f.svc.Cancel(ctx, issued.Invitation.ID)) // doble cancel: no-op

	// cancelar no es consumir: used_at queda NULL y el estado deriva CANCELLED
	inv, err := f.store.Invitations().GetByID(ctx, issued.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, repository.InvitationCancelled, inv.Status)
	require.Nil(t, inv.UsedAt)

	_, err = f.svc.Accept(ctx, issued.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.ErrorIs(t, err, tokenflow.ErrInvalidToken)
}

func TestCancelAcceptedFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued := f.invite(t, "new@example.com", rbac.RoleTenantUser)
	_, err := f.svc.Accept(ctx, issued.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Cancel(ctx, issued.Invitation.ID), invites.ErrAlreadyAccepted)
}

func TestResendIssuesFreshToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued := f.invite(t, "new@example.com", rbac.RoleTenantUser)

	// vencida: resend la revive con token y expiry nuevos
	*f.clock = f.now.Add(tokenflow.InvitationTTL + time.Hour)
	reissued, err := f.svc.Resend(ctx, issued.Invitation.ID)
	require.NoError(t, err)
	require.NotEqual(t, issued.Token, reissued.Token)
	require.Equal(t, f.clock.Add(tokenflow.InvitationTTL), reissued.Invitation.ExpiresAt)

	// el link viejo murió, el nuevo funciona
	_, err = f.svc.Accept(ctx, issued.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.ErrorIs(t, err, tokenflow.ErrInvalidToken)
	_, err = f.svc.Accept(ctx, reissued.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.NoError(t, err)
}

func TestListDerivesEffectiveState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.invite(t, "live@example.com", rbac.RoleTenantUser)
	cancelled := f.invite(t, "cancelled@example.com", rbac.RoleTenantUser)
	require.NoError(t, f.svc.Cancel(ctx, cancelled.Invitation.ID))
	accepted := f.invite(t, "accepted@example.com", rbac.RoleTenantUser)
	_, err := f.svc.Accept(ctx, accepted.Token, invites.AcceptInput{Password: "long-enough-pass"})
	require.NoError(t, err)

	// live queda vencida al avanzar el reloj, sin housekeeping de por medio
	*f.clock = f.now.Add(tokenflow.InvitationTTL + time.Minute)

	views, err := f.svc.List(ctx, f.tenant.ID)
	require.NoError(t, err)
	states := map[string]tokenflow.State{}
	for _, v := range views {
		states[v.Email] = v.State
	}
	require.Equal(t, tokenflow.StateExpired, states["live@example.com"])
	require.Equal(t, tokenflow.StateCancelled, states["cancelled@example.com"])
	require.Equal(t, tokenflow.StateConsumed, states["accepted@example.com"])
}
