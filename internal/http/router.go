// Package http expone la API de la consola: auth, invitaciones, MFA y
// los endpoints operativos (health, metrics).
package http

import (
	"net/http"

	"github.com/appercydev/uinbox/internal/rate"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps agrupa todo lo que el router necesita.
type RouterDeps struct {
	Handlers *Handlers
	Auth     *Authenticator

	CORSAllowedOrigins []string

	// Limiters por flujo; nil = sin límite.
	LoginLimiter  rate.Limiter
	ForgotLimiter rate.Limiter
	InviteLimiter rate.Limiter
}

// NewRouter arma el router completo.
func NewRouter(d RouterDeps) *chi.Mux {
	h := d.Handlers
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithRecover)
	r.Use(WithLogging)
	if len(d.CORSAllowedOrigins) > 0 {
		r.Use(WithCORS(d.CORSAllowedOrigins))
	}

	// operativos, sin auth
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signup)
			r.With(WithRateLimit(d.LoginLimiter)).Post("/login", h.login)
			r.Get("/confirm-email", h.confirmEmail)
			r.With(WithRateLimit(d.ForgotLimiter)).Post("/confirm-email/resend", h.resendConfirmation)
			r.With(WithRateLimit(d.ForgotLimiter)).Post("/forgot", h.forgot)
			r.Post("/reset", h.reset)
			r.Post("/accept-invitation", h.acceptInvitation)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.RequireAuth)

			r.Get("/me", h.me)
			r.With(RequirePermission(rbac.ViewUsers)).Get("/members", h.listMembers)

			r.Route("/invitations", func(r chi.Router) {
				r.Use(RequirePermission(rbac.InviteUsers))
				r.Get("/", h.listInvitations)
				r.With(WithRateLimit(d.InviteLimiter)).Post("/", h.createInvitation)
				r.Post("/{id}/cancel", h.cancelInvitation)
				r.With(WithRateLimit(d.InviteLimiter)).Post("/{id}/resend", h.resendInvitation)
			})

			r.Route("/mfa/totp", func(r chi.Router) {
				r.Post("/enroll", h.enrollTOTP)
				r.Post("/verify", h.verifyTOTP)
			})
		})
	})

	return r
}
