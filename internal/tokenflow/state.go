package tokenflow

import "time"

// State es el estado efectivo de un token. ISSUED es el único estado no
// terminal; EXPIRED se deriva del reloj, no se persiste como transición.
type State string

const (
	StateIssued    State = "ISSUED"
	StateConsumed  State = "CONSUMED"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
)

// StateOf deriva el estado efectivo desde {used_at, expires_at, cancelled}.
// Única función de derivación del sistema: invitaciones y tokens de email
// pasan por acá para que las dos representaciones (used_at vs status) no
// puedan divergir.
//
// Precedencia: consumido > cancelado > expirado. Un token usado y luego
// vencido sigue siendo CONSUMED.
func StateOf(usedAt *time.Time, expiresAt time.Time, cancelled bool, now time.Time) State {
	if usedAt != nil {
		return StateConsumed
	}
	if cancelled {
		return StateCancelled
	}
	if !now.Before(expiresAt) {
		return StateExpired
	}
	return StateIssued
}

// Live reporta si el token sigue siendo canjeable.
func Live(usedAt *time.Time, expiresAt time.Time, cancelled bool, now time.Time) bool {
	return StateOf(usedAt, expiresAt, cancelled, now) == StateIssued
}
