// uinbox es el binario de la consola de administración: server HTTP,
// migraciones, bootstrap del SUPER_ADMIN y housekeeping de tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/appercydev/uinbox/internal/auth"
	"github.com/appercydev/uinbox/internal/config"
	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/email"
	"github.com/appercydev/uinbox/internal/identity"
	"github.com/appercydev/uinbox/internal/invites"
	"github.com/appercydev/uinbox/internal/jwt"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/session"
	"github.com/appercydev/uinbox/internal/store/memory"
	"github.com/appercydev/uinbox/internal/store/pg"
	"github.com/appercydev/uinbox/internal/tokenflow"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "uinbox",
		Short:         "Consola de administración multi-tenant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "ruta del config YAML (opcional)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(bootstrapCmd())
	root.AddCommand(purgeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig carga .env (si existe), el YAML y arranca el logger.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Logging.Level})
	return cfg, nil
}

// openStore abre el driver configurado.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		var lifetime time.Duration
		if s := cfg.Storage.Postgres.ConnMaxLifetime; s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				lifetime = d
			}
		}
		return pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
			MinConns:        int32(cfg.Storage.Postgres.MinConns),
			ConnMaxLifetime: lifetime,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// services agrupa el grafo de servicios ya cableado.
type services struct {
	store    repository.Store
	ids      *identity.Service
	tokens   *tokenflow.Manager
	sessions *session.Resolver
	auth     *auth.Service
	invites  *invites.Service
	jwt      *jwt.Issuer
}

func buildServices(cfg *config.Config, store repository.Store) (*services, error) {
	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			FromEmail:          cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	} else {
		sender = email.DevLogSender{}
	}

	ids := identity.New(store.Identities())
	tokens := tokenflow.New(store.Tokens(), sender, cfg.Email.BaseURL)
	sessions := session.NewResolver(store)
	authSvc := auth.New(auth.Deps{
		Store:      store,
		Identities: ids,
		Tokens:     tokens,
		Sessions:   sessions,
		TOTPIssuer: cfg.JWT.Issuer,
	})
	invSvc := invites.New(invites.Deps{
		Store:      store,
		Identities: ids,
		Sender:     sender,
		BaseURL:    cfg.Email.BaseURL,
	})
	issuer, err := jwt.NewIssuer(cfg.JWT.Issuer, cfg.JWT.Seed, cfg.JWT.AccessTTL.Std())
	if err != nil {
		return nil, err
	}
	return &services{
		store:    store,
		ids:      ids,
		tokens:   tokens,
		sessions: sessions,
		auth:     authSvc,
		invites:  invSvc,
		jwt:      issuer,
	}, nil
}
