package email

import (
	"context"
	"time"
)

// Kind identifica el template a usar.
type Kind string

const (
	KindConfirmEmail  Kind = "confirm_email"
	KindPasswordReset Kind = "password_reset"
	KindInvitation    Kind = "invitation"
)

// Payload son las variables de los templates.
type Payload struct {
	To          string
	Link        string
	TTL         time.Duration
	TenantName  string
	InviterName string
	RoleName    string
}

// Sender envía notificaciones transaccionales. Best-effort: un fallo de envío
// nunca debe revertir la operación que lo disparó; el caller lo reporta como
// warning.
type Sender interface {
	Send(ctx context.Context, kind Kind, p Payload) error
}
