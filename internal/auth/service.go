// Package auth orquesta los flujos de autenticación: signup de organización,
// login con step-up TOTP, confirmación de email, forgot/reset de password y
// el bootstrap del SUPER_ADMIN de plataforma.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/identity"
	"github.com/appercydev/uinbox/internal/metrics"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rbac"
	tokens "github.com/appercydev/uinbox/internal/security/token"
	"github.com/appercydev/uinbox/internal/security/totp"
	"github.com/appercydev/uinbox/internal/session"
	"github.com/appercydev/uinbox/internal/tokenflow"
	cache "github.com/patrickmn/go-cache"
)

var (
	// ErrBadCredentials reexporta el sentinel del proveedor de identidades:
	// cubre email inexistente, password incorrecto y cuenta sin membresía.
	ErrBadCredentials = identity.ErrBadCredentials

	// ErrEmailTaken: signup con un email ya registrado.
	ErrEmailTaken = identity.ErrEmailTaken

	// ErrSlugTaken: signup con un slug de organización ya tomado.
	ErrSlugTaken = errors.New("organization slug already taken")

	// ErrEmailNotConfirmed: login antes de confirmar el email.
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrSuspended: login de una membresía suspendida.
	ErrSuspended = errors.New("membership suspended")

	// ErrTOTPRequired: credenciales válidas pero falta el código TOTP.
	ErrTOTPRequired = errors.New("totp code required")

	// ErrTOTPInvalid: el código TOTP (o de respaldo) no validó.
	ErrTOTPInvalid = errors.New("invalid totp code")

	// ErrTOTPNotEnrolled: verify/activate sin un secreto enrolado.
	ErrTOTPNotEnrolled = errors.New("totp not enrolled")
)

// Deps son las dependencias del servicio.
type Deps struct {
	Store      repository.Store
	Identities *identity.Service
	Tokens     *tokenflow.Manager
	Sessions   *session.Resolver
	TOTPIssuer string // issuer que aparece en la app autenticadora
}

// Service implementa los flujos de autenticación.
type Service struct {
	deps Deps
	now  func() time.Time

	// replay guarda el último counter TOTP aceptado por miembro. Mejor
	// esfuerzo: vive en memoria, un restart lo limpia y la ventana de ±2
	// steps vuelve a estar abierta esos 60s.
	replay *cache.Cache
}

func New(deps Deps) *Service {
	if deps.TOTPIssuer == "" {
		deps.TOTPIssuer = "uinbox"
	}
	return &Service{
		deps:   deps,
		now:    time.Now,
		replay: cache.New(10*time.Minute, 10*time.Minute),
	}
}

// WithClock reemplaza la fuente de tiempo. Solo para tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SignupInput son los datos del alta de organización.
type SignupInput struct {
	TenantName string
	TenantSlug string // opcional, se deriva del nombre si viene vacío
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Password   string
}

// SignupResult es el resultado del alta.
type SignupResult struct {
	Tenant *repository.Tenant
	Member *repository.TenantUser

	// Confirmation trae el token de confirmación emitido; su Warning es
	// non-nil si el email no salió.
	Confirmation *tokenflow.Issued
}

// Signup crea tenant + identidad + membresía OWNER en PENDING y emite el
// token de confirmación. La membresía pasa a ACTIVE recién al confirmar.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"))

	name := strings.TrimSpace(in.TenantName)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name", repository.ErrInvalidInput)
	}
	slug := Slugify(in.TenantSlug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: tenant slug", repository.ErrInvalidInput)
	}

	tenant := &repository.Tenant{Name: name, Slug: slug}
	if err := s.deps.Store.Tenants().Create(ctx, tenant); err != nil {
		if repository.IsConflict(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("auth: create tenant: %w", err)
	}

	id, err := s.deps.Identities.Create(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	member, err := s.deps.Store.Members().Create(ctx, repository.CreateMemberInput{
		IdentityID: id.ID,
		TenantID:   tenant.ID,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      id.Email,
		Phone:      strings.TrimSpace(in.Phone),
		Role:       rbac.RoleTenantOwner,
		Status:     repository.MemberPending,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: create membership: %w", err)
	}

	issued, err := s.deps.Tokens.Issue(ctx, id.ID, id.Email, repository.TokenEmailConfirmation)
	if err != nil {
		return nil, fmt.Errorf("auth: confirmation token: %w", err)
	}
	log.Info("organization signed up",
		logger.TenantID(tenant.ID), logger.TenantSlug(tenant.Slug), logger.MemberID(member.ID))
	return &SignupResult{Tenant: tenant, Member: member, Confirmation: issued}, nil
}

// Login verifica credenciales y resuelve la sesión. Si la membresía tiene 2FA
// habilitado exige además un código TOTP vigente o un código de respaldo.
// Un login exitoso sella last_login.
func (s *Service) Login(ctx context.Context, email, plainPassword, totpCode string) (*session.Session, error) {
	id, err := s.deps.Identities.VerifyCredentials(ctx, email, plainPassword)
	if err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			metrics.LoginsTotal.WithLabelValues("bad_credentials").Inc()
		}
		return nil, err
	}
	sess, err := s.deps.Sessions.CurrentUser(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// identidad sin membresía: mismo error genérico, sin enumeración
		metrics.LoginsTotal.WithLabelValues("bad_credentials").Inc()
		return nil, ErrBadCredentials
	}
	switch sess.Member.Status {
	case repository.MemberSuspended:
		return nil, ErrSuspended
	case repository.MemberPending, repository.MemberInvited:
		return nil, ErrEmailNotConfirmed
	}
	if sess.Member.TwoFactorEnabled {
		if strings.TrimSpace(totpCode) == "" {
			metrics.LoginsTotal.WithLabelValues("totp_required").Inc()
			return nil, ErrTOTPRequired
		}
		if err := s.verifySecondFactor(ctx, sess.Member, totpCode); err != nil {
			metrics.LoginsTotal.WithLabelValues("totp_invalid").Inc()
			return nil, err
		}
	}
	if err := s.deps.Store.Members().TouchLastLogin(ctx, id.ID, s.now().UTC()); err != nil {
		// no bloquea el login
		logger.From(ctx).Warn("last_login update failed",
			logger.Component("auth"), logger.Err(err), logger.UserID(id.ID))
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return sess, nil
}

// verifySecondFactor valida TOTP con anti-replay y cae a códigos de respaldo.
func (s *Service) verifySecondFactor(ctx context.Context, m *repository.TenantUser, code string) error {
	secret, err := totp.DecodeSecret(m.TwoFactorSecret)
	if err != nil {
		return ErrTOTPNotEnrolled
	}
	var last *int64
	if v, ok := s.replay.Get(m.ID); ok {
		c := v.(int64)
		last = &c
	}
	if ok, counter := totp.Verify(secret, code, s.now(), totp.DefaultWindow, last); ok {
		s.replay.Set(m.ID, counter, cache.DefaultExpiration)
		return nil
	}
	// código de respaldo: un solo uso, se consume del array
	if err := s.deps.Store.Members().UseBackupCode(ctx, m.ID, tokens.HashOf(strings.ToUpper(strings.TrimSpace(code)))); err == nil {
		logger.From(ctx).Info("backup code used",
			logger.Component("auth"), logger.MemberID(m.ID))
		return nil
	}
	return ErrTOTPInvalid
}

// ConfirmEmail canjea el token de confirmación: sella email_confirmed_at y
// activa la membresía, todo o nada con el consumo del token.
func (s *Service) ConfirmEmail(ctx context.Context, plainToken string) error {
	rec, err := s.deps.Tokens.Validate(ctx, repository.TokenEmailConfirmation, plainToken)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	return s.deps.Tokens.Consume(ctx, repository.TokenEmailConfirmation, plainToken, func(ctx context.Context) error {
		if err := s.deps.Identities.MarkEmailConfirmed(ctx, rec.IdentityID, now); err != nil {
			return err
		}
		if err := s.deps.Store.Members().Activate(ctx, rec.IdentityID); err != nil && !repository.IsNotFound(err) {
			return err
		}
		return nil
	})
}

// ResendConfirmation reemite el token de confirmación. Silencioso si el email
// no existe o ya está confirmado: la respuesta no enumera cuentas.
func (s *Service) ResendConfirmation(ctx context.Context, email string) (*tokenflow.Issued, error) {
	id, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if id.EmailConfirmedAt != nil {
		return nil, nil
	}
	return s.deps.Tokens.Reissue(ctx, id.ID, id.Email, repository.TokenEmailConfirmation)
}

// Forgot emite un token de reset. Silencioso si el email no existe.
func (s *Service) Forgot(ctx context.Context, email string) (*tokenflow.Issued, error) {
	id, err := s.deps.Identities.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s.deps.Tokens.Reissue(ctx, id.ID, id.Email, repository.TokenPasswordReset)
}

// Reset canjea el token de reset e instala el password nuevo, todo o nada.
// Si la membresía seguía PENDING también la activa: el token de reset prueba
// posesión del email igual que el de confirmación (camino del primer login
// del SUPER_ADMIN bootstrapeado).
func (s *Service) Reset(ctx context.Context, plainToken, newPassword string) error {
	rec, err := s.deps.Tokens.Validate(ctx, repository.TokenPasswordReset, plainToken)
	if err != nil {
		return err
	}
	return s.deps.Tokens.Consume(ctx, repository.TokenPasswordReset, plainToken, func(ctx context.Context) error {
		if err := s.deps.Identities.SetPassword(ctx, rec.IdentityID, newPassword); err != nil {
			return err
		}
		if err := s.deps.Identities.MarkEmailConfirmed(ctx, rec.IdentityID, s.now().UTC()); err != nil {
			return err
		}
		if err := s.deps.Store.Members().Activate(ctx, rec.IdentityID); err != nil && !repository.IsNotFound(err) {
			return err
		}
		return nil
	})
}

// Enrollment es el material de enrolamiento TOTP, se muestra una sola vez.
type Enrollment struct {
	SecretB32  string
	OTPAuthURL string
}

// EnrollTOTP genera y guarda un secreto nuevo en estado deshabilitado. El 2FA
// queda efectivo recién cuando ActivateTOTP valida un código.
func (s *Service) EnrollTOTP(ctx context.Context, memberID string) (*Enrollment, error) {
	m, err := s.deps.Store.Members().GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	_, b32, err := totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("auth: totp secret: %w", err)
	}
	if err := s.deps.Store.Members().SetTwoFactor(ctx, m.ID, b32, false); err != nil {
		return nil, err
	}
	return &Enrollment{
		SecretB32:  b32,
		OTPAuthURL: totp.OTPAuthURL(s.deps.TOTPIssuer, m.Email, b32),
	}, nil
}

// ActivateTOTP valida el primer código contra el secreto enrolado, habilita
// 2FA y retorna los códigos de respaldo en claro (única vez que se ven; solo
// se persisten sus hashes).
func (s *Service) ActivateTOTP(ctx context.Context, memberID, code string) ([]string, error) {
	m, err := s.deps.Store.Members().GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.TwoFactorSecret == "" {
		return nil, ErrTOTPNotEnrolled
	}
	secret, err := totp.DecodeSecret(m.TwoFactorSecret)
	if err != nil {
		return nil, ErrTOTPNotEnrolled
	}
	ok, counter := totp.Verify(secret, code, s.now(), totp.DefaultWindow, nil)
	if !ok {
		return nil, ErrTOTPInvalid
	}
	s.replay.Set(m.ID, counter, cache.DefaultExpiration)

	codes, err := totp.GenerateBackupCodes(10)
	if err != nil {
		return nil, fmt.Errorf("auth: backup codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = tokens.HashOf(c)
	}
	if err := s.deps.Store.Members().SetBackupCodes(ctx, m.ID, hashes); err != nil {
		return nil, err
	}
	if err := s.deps.Store.Members().SetTwoFactor(ctx, m.ID, m.TwoFactorSecret, true); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("totp enabled", logger.Component("auth"), logger.MemberID(m.ID))
	return codes, nil
}
