// Package invites implementa el flujo de invitaciones de equipo: invitar,
// aceptar, cancelar, reenviar y listar. Comparte las primitivas de token con
// tokenflow (mismo token opaco, mismos estados) y agrega las reglas de
// dominio: pre-chequeo de miembro duplicado, creación de cuenta al aceptar.
package invites

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/email"
	"github.com/appercydev/uinbox/internal/identity"
	"github.com/appercydev/uinbox/internal/metrics"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rbac"
	tokens "github.com/appercydev/uinbox/internal/security/token"
	"github.com/appercydev/uinbox/internal/tokenflow"
)

var (
	// ErrDuplicateMember: el email ya tiene una membresía no suspendida en el
	// tenant. Se detecta antes de emitir token alguno.
	ErrDuplicateMember = errors.New("email already belongs to a member of this organization")

	// ErrDuplicateInvitation: ya hay una invitación PENDING para ese email.
	// Lo reporta el índice único del datastore si dos invites corren en
	// paralelo; el pre-chequeo no alcanza para esa carrera.
	ErrDuplicateInvitation = errors.New("a pending invitation already exists for this email")

	// ErrInvalidRole: el rol pedido no es asignable por invitación.
	ErrInvalidRole = errors.New("role is not assignable via invitation")

	// ErrAlreadyAccepted: cancel/resend sobre una invitación ya aceptada.
	ErrAlreadyAccepted = errors.New("invitation already accepted")

	// ErrAccountCreationFailed: la invitación validó pero la creación de la
	// cuenta falló. El token queda canjeable para reintentar.
	ErrAccountCreationFailed = errors.New("account creation failed")
)

// Deps son las dependencias del servicio.
type Deps struct {
	Store      repository.Store
	Identities *identity.Service
	Sender     email.Sender // nil deshabilita notificaciones
	BaseURL    string
}

// Service implementa el flujo de invitaciones.
type Service struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Service {
	deps.BaseURL = strings.TrimRight(deps.BaseURL, "/")
	return &Service{deps: deps, now: time.Now}
}

// WithClock reemplaza la fuente de tiempo. Solo para tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// InviteInput son los datos de una invitación nueva.
type InviteInput struct {
	TenantID    string
	InvitedByID string // member id del invitador
	Email       string
	Role        rbac.Role
}

// Issued es el resultado de Invite/Resend.
type Issued struct {
	Invitation *repository.Invitation
	Token      string // valor en claro, solo para armar el link
	Link       string

	// Warning es non-nil si el email no salió. La invitación quedó creada
	// igual; el caller decide cómo reportarlo.
	Warning error
}

// Invite crea una invitación PENDING y despacha el email.
//
// El pre-chequeo de miembro duplicado es check-then-act: dos invitaciones
// simultáneas para el mismo email pueden pasar ambas. El índice único sobre
// invitaciones PENDING del datastore corta esa carrera (ErrDuplicateInvitation
// para la que pierde).
func (s *Service) Invite(ctx context.Context, in InviteInput) (*Issued, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("invites"),
		logger.TenantID(in.TenantID),
	)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: email", repository.ErrInvalidInput)
	}
	if !in.Role.Invitable() {
		return nil, ErrInvalidRole
	}

	// duplicado: membresía viva para ese email en el tenant
	if m, err := s.deps.Store.Members().GetByEmail(ctx, in.TenantID, in.Email); err == nil {
		if m.Status != repository.MemberSuspended {
			metrics.InvitationsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateMember
		}
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("invites: member lookup: %w", err)
	}

	plain, err := tokens.NewOpaque(tokens.DefaultBytes)
	if err != nil {
		return nil, fmt.Errorf("invites: generate: %w", err)
	}
	now := s.now().UTC()
	inv, err := s.deps.Store.Invitations().Create(ctx, repository.CreateInvitationInput{
		TenantID:    in.TenantID,
		InvitedByID: in.InvitedByID,
		Email:       in.Email,
		Role:        in.Role,
		TokenHash:   tokens.HashOf(plain),
		ExpiresAt:   now.Add(tokenflow.InvitationTTL),
	})
	if err != nil {
		if repository.IsConflict(err) {
			metrics.InvitationsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateInvitation
		}
		return nil, fmt.Errorf("invites: persist: %w", err)
	}
	metrics.InvitationsTotal.WithLabelValues("sent").Inc()

	out := &Issued{Invitation: inv, Token: plain, Link: s.link(plain)}
	out.Warning = s.notify(ctx, inv, out.Link)
	log.Info("invitation created",
		logger.InvitationID(inv.ID), logger.Email(inv.Email), logger.Role(string(inv.Role)))
	return out, nil
}

// AcceptInput son los datos de perfil del invitado.
type AcceptInput struct {
	FirstName string
	LastName  string
	Password  string
}

// Accept canjea el token: crea identidad + membresía ACTIVE con el rol de la
// invitación y marca ACCEPTED, todo o nada. Si la creación de cuenta falla la
// invitación queda PENDING y el token sigue siendo canjeable.
func (s *Service) Accept(ctx context.Context, plainToken string, in AcceptInput) (*repository.TenantUser, error) {
	if strings.TrimSpace(plainToken) == "" {
		return nil, tokenflow.ErrInvalidToken
	}
	hash := tokens.HashOf(plainToken)
	inv, err := s.deps.Store.Invitations().GetByHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, tokenflow.ErrInvalidToken
		}
		return nil, fmt.Errorf("invites: lookup: %w", err)
	}
	now := s.now().UTC()
	cancelled := inv.Status == repository.InvitationCancelled
	if !tokenflow.Live(inv.UsedAt, inv.ExpiresAt, cancelled, now) {
		return nil, tokenflow.ErrInvalidToken
	}

	var member *repository.TenantUser
	err = s.deps.Store.Invitations().Accept(ctx, hash, now, func(ctx context.Context) error {
		id, err := s.deps.Identities.Create(ctx, inv.Email, in.Password)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
		// la invitación prueba posesión del email
		if err := s.deps.Identities.MarkEmailConfirmed(ctx, id.ID, now); err != nil {
			return fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
		member, err = s.deps.Store.Members().Create(ctx, repository.CreateMemberInput{
			IdentityID:    id.ID,
			TenantID:      inv.TenantID,
			FirstName:     strings.TrimSpace(in.FirstName),
			LastName:      strings.TrimSpace(in.LastName),
			Email:         inv.Email,
			Role:          inv.Role,
			Status:        repository.MemberActive,
			EmailVerified: true,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			// otro canje ganó la carrera entre la validación y el CAS
			return nil, tokenflow.ErrInvalidToken
		}
		return nil, err
	}
	metrics.InvitationsTotal.WithLabelValues("accepted").Inc()
	logger.From(ctx).Info("invitation accepted",
		logger.Component("invites"), logger.InvitationID(inv.ID),
		logger.TenantID(inv.TenantID), logger.MemberID(member.ID))
	return member, nil
}

// Cancel transiciona PENDING→CANCELLED. Idempotente sobre CANCELLED;
// ErrAlreadyAccepted si la invitación ya fue canjeada.
func (s *Service) Cancel(ctx context.Context, invitationID string) error {
	err := s.deps.Store.Invitations().Cancel(ctx, invitationID, s.now().UTC())
	if err != nil {
		if repository.IsConflict(err) {
			return ErrAlreadyAccepted
		}
		return err
	}
	metrics.InvitationsTotal.WithLabelValues("cancelled").Inc()
	return nil
}

// Resend instala un token fresco con expiry fresco y fuerza PENDING, también
// sobre invitaciones vencidas o canceladas. El link anterior muere porque el
// hash se reemplaza.
func (s *Service) Resend(ctx context.Context, invitationID string) (*Issued, error) {
	inv, err := s.deps.Store.Invitations().GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status == repository.InvitationAccepted {
		return nil, ErrAlreadyAccepted
	}
	plain, err := tokens.NewOpaque(tokens.DefaultBytes)
	if err != nil {
		return nil, fmt.Errorf("invites: generate: %w", err)
	}
	now := s.now().UTC()
	expires := now.Add(tokenflow.InvitationTTL)
	if err := s.deps.Store.Invitations().Renew(ctx, invitationID, tokens.HashOf(plain), expires, now); err != nil {
		if repository.IsConflict(err) {
			return nil, ErrAlreadyAccepted
		}
		return nil, err
	}
	inv, err = s.deps.Store.Invitations().GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	metrics.InvitationsTotal.WithLabelValues("resent").Inc()

	out := &Issued{Invitation: inv, Token: plain, Link: s.link(plain)}
	out.Warning = s.notify(ctx, inv, out.Link)
	return out, nil
}

// View es una invitación con su estado efectivo derivado, para listar.
type View struct {
	repository.Invitation
	State tokenflow.State
}

// List lista las invitaciones del tenant con estado derivado (una invitación
// PENDING vencida se muestra EXPIRED aunque el housekeeping no haya corrido).
func (s *Service) List(ctx context.Context, tenantID string) ([]View, error) {
	invs, err := s.deps.Store.Invitations().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]View, 0, len(invs))
	for _, inv := range invs {
		cancelled := inv.Status == repository.InvitationCancelled
		out = append(out, View{Invitation: inv, State: tokenflow.StateOf(inv.UsedAt, inv.ExpiresAt, cancelled, now)})
	}
	return out, nil
}

func (s *Service) link(plain string) string {
	return fmt.Sprintf("%s/accept-invitation?token=%s", s.deps.BaseURL, url.QueryEscape(plain))
}

// notify despacha el email de invitación. Best-effort: retorna el error como
// warning, nunca revierte.
func (s *Service) notify(ctx context.Context, inv *repository.Invitation, link string) error {
	if s.deps.Sender == nil {
		return nil
	}
	p := email.Payload{
		To:       inv.Email,
		Link:     link,
		TTL:      tokenflow.InvitationTTL,
		RoleName: string(inv.Role),
	}
	if t, err := s.deps.Store.Tenants().GetByID(ctx, inv.TenantID); err == nil {
		p.TenantName = t.Name
	}
	if inv.InvitedByID != "" {
		if m, err := s.deps.Store.Members().GetByID(ctx, inv.InvitedByID); err == nil {
			p.InviterName = strings.TrimSpace(m.FirstName + " " + m.LastName)
		}
	}
	if err := s.deps.Sender.Send(ctx, email.KindInvitation, p); err != nil {
		logger.From(ctx).Warn("invitation email delivery failed",
			logger.Component("invites"), logger.Err(err), logger.Email(inv.Email))
		return fmt.Errorf("notification failed: %w", err)
	}
	return nil
}
