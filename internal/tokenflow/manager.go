// Package tokenflow implementa el ciclo de vida de tokens de un solo uso:
// emitir, validar, consumir y reemitir. Los tres flujos (confirmación de
// email, password reset, invitación) comparten la misma máquina de estados;
// acá viven la política de TTLs y el manager de los dos primeros. El flujo
// de invitación agrega reglas de dominio en internal/invites.
package tokenflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/email"
	"github.com/appercydev/uinbox/internal/metrics"
	"github.com/appercydev/uinbox/internal/observability/logger"
	tokens "github.com/appercydev/uinbox/internal/security/token"
)

// TTLs por tipo. Constantes de política, no se parametrizan por call site.
const (
	ConfirmationTTL = 24 * time.Hour
	ResetTTL        = 1 * time.Hour
	InvitationTTL   = 7 * 24 * time.Hour
)

// TTLFor devuelve el TTL de política para un kind.
func TTLFor(kind repository.TokenKind) time.Duration {
	if kind == repository.TokenPasswordReset {
		return ResetTTL
	}
	return ConfirmationTTL
}

// ErrInvalidToken cubre token inexistente, ya usado o vencido. Deliberadamente
// genérico: no filtramos cuál de los tres casos fue a un caller no autenticado.
var ErrInvalidToken = errors.New("invalid or expired token")

// Manager emite y consume tokens de confirmación/reset.
type Manager struct {
	repo    repository.TokenRepository
	sender  email.Sender
	baseURL string
	now     func() time.Time
}

// New crea un Manager. sender puede ser nil (no se notifica, útil en tests).
func New(repo repository.TokenRepository, sender email.Sender, baseURL string) *Manager {
	return &Manager{
		repo:    repo,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// WithClock reemplaza la fuente de tiempo. Solo para tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issued es el resultado de Issue/Reissue.
type Issued struct {
	Record *repository.Token
	Token  string // valor en claro, solo para armar el link
	Link   string

	// Warning es non-nil si la notificación falló. El token quedó creado
	// igual (entrega best-effort); el caller decide cómo reportarlo.
	Warning error
}

// Issue genera un token opaco, lo persiste con expires_at = now + TTL del
// kind y despacha el email. Un fallo de envío no revierte la creación.
func (m *Manager) Issue(ctx context.Context, identityID, to string, kind repository.TokenKind) (*Issued, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tokenflow"),
		logger.TokenKind(string(kind)),
	)

	plain, err := tokens.NewOpaque(tokens.DefaultBytes)
	if err != nil {
		return nil, fmt.Errorf("tokenflow: generate: %w", err)
	}
	now := m.now().UTC()
	rec, err := m.repo.Create(ctx, repository.CreateTokenInput{
		IdentityID: identityID,
		Email:      to,
		Kind:       kind,
		TokenHash:  tokens.HashOf(plain),
		ExpiresAt:  now.Add(TTLFor(kind)),
	})
	if err != nil {
		return nil, fmt.Errorf("tokenflow: persist: %w", err)
	}
	metrics.TokensIssued.WithLabelValues(string(kind)).Inc()

	out := &Issued{Record: rec, Token: plain, Link: m.LinkFor(kind, plain)}
	if m.sender != nil {
		if err := m.sender.Send(ctx, mailKind(kind), email.Payload{
			To:   to,
			Link: out.Link,
			TTL:  TTLFor(kind),
		}); err != nil {
			// best-effort: se reporta, no se revierte
			log.Warn("token email delivery failed", logger.Err(err), logger.Email(to))
			out.Warning = fmt.Errorf("notification failed: %w", err)
		}
	}
	log.Debug("token issued", logger.UserID(identityID))
	return out, nil
}

// Validate busca el token por su valor exacto y verifica que siga vivo.
// Cualquier causa de invalidez colapsa en ErrInvalidToken.
func (m *Manager) Validate(ctx context.Context, kind repository.TokenKind, plain string) (*repository.Token, error) {
	if strings.TrimSpace(plain) == "" {
		return nil, ErrInvalidToken
	}
	rec, err := m.repo.GetByHash(ctx, kind, tokens.HashOf(plain))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("tokenflow: lookup: %w", err)
	}
	if !Live(rec.UsedAt, rec.ExpiresAt, false, m.now().UTC()) {
		return nil, ErrInvalidToken
	}
	return rec, nil
}

// Consume revalida y aplica effect de forma transaccional: marca used_at y
// ejecuta effect confirmando ambos o ninguno. Si effect falla el token queda
// canjeable para reintentar. Dos consumos concurrentes: exactamente uno gana
// (CAS en el repositorio); el otro recibe ErrInvalidToken.
func (m *Manager) Consume(ctx context.Context, kind repository.TokenKind, plain string, effect func(ctx context.Context) error) error {
	if strings.TrimSpace(plain) == "" {
		return ErrInvalidToken
	}
	err := m.repo.Consume(ctx, kind, tokens.HashOf(plain), m.now().UTC(), effect)
	if err != nil {
		if repository.IsNotFound(err) || errors.Is(err, repository.ErrTokenExpired) {
			return ErrInvalidToken
		}
		return err
	}
	metrics.TokensConsumed.WithLabelValues(string(kind)).Inc()
	return nil
}

// Reissue invalida cualquier token vivo del mismo owner/kind y emite uno
// nuevo. Garantiza un solo token válido por propósito.
func (m *Manager) Reissue(ctx context.Context, identityID, to string, kind repository.TokenKind) (*Issued, error) {
	n, err := m.repo.InvalidateActive(ctx, kind, identityID, m.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("tokenflow: invalidate: %w", err)
	}
	if n > 0 {
		logger.From(ctx).Debug("invalidated prior tokens",
			logger.Component("tokenflow"), logger.TokenKind(string(kind)), logger.Count(n))
	}
	return m.Issue(ctx, identityID, to, kind)
}

// PurgeExpired borra tokens vencidos. Invocado por el comando purge-tokens;
// no hay scheduler in-process.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.repo.DeleteExpired(ctx, m.now().UTC())
}

// LinkFor arma la URL que viaja en el email.
func (m *Manager) LinkFor(kind repository.TokenKind, plain string) string {
	path := "/confirm-email"
	if kind == repository.TokenPasswordReset {
		path = "/reset-password"
	}
	return fmt.Sprintf("%s%s?token=%s", m.baseURL, path, url.QueryEscape(plain))
}

func mailKind(kind repository.TokenKind) email.Kind {
	if kind == repository.TokenPasswordReset {
		return email.KindPasswordReset
	}
	return email.KindConfirmEmail
}
