package email

import (
	"context"

	"github.com/appercydev/uinbox/internal/observability/logger"
)

// DevLogSender loguea el email en lugar de enviarlo. Para desarrollo local y
// tests: el link queda visible en el log.
type DevLogSender struct{}

func (DevLogSender) Send(ctx context.Context, kind Kind, p Payload) error {
	logger.From(ctx).Info("email (dev, not sent)",
		logger.Component("email"),
		logger.String("kind", string(kind)),
		logger.Email(p.To),
		logger.String("link", p.Link),
	)
	return nil
}
