// Package metrics define los contadores Prometheus del servicio. Paquete
// standalone para evitar ciclos de import entre services y HTTP.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uinbox_tokens_issued_total",
		Help: "Tokens de un solo uso emitidos, por tipo",
	}, []string{"kind"})

	TokensConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uinbox_tokens_consumed_total",
		Help: "Tokens canjeados exitosamente, por tipo",
	}, []string{"kind"})

	InvitationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uinbox_invitations_total",
		Help: "Operaciones de invitación por resultado (sent/accepted/cancelled/resent/duplicate)",
	}, []string{"result"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uinbox_logins_total",
		Help: "Intentos de login por resultado (ok/bad_credentials/totp_required/totp_invalid)",
	}, []string{"result"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uinbox_http_requests_total",
		Help: "Requests HTTP por ruta y status",
	}, []string{"path", "status"})
)

// Register registra todas las métricas en reg (o el default si es nil).
// Tolera doble registro para no romper en tests.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		TokensIssued, TokensConsumed, InvitationsTotal, LoginsTotal, HTTPRequests,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
