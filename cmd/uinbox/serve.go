package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/appercydev/uinbox/internal/http"
	"github.com/appercydev/uinbox/internal/metrics"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rate"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Arranca el server HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svcs, err := buildServices(cfg, store)
			if err != nil {
				return err
			}
			if err := metrics.Register(nil); err != nil {
				return err
			}

			var loginL, forgotL, inviteL rate.Limiter
			if cfg.Rate.Enabled {
				if cfg.Redis.Addr != "" {
					client := rdb.NewClient(&rdb.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
					loginL = rate.NewRedisLimiter(client, cfg.Redis.Prefix+"login:", cfg.Rate.Login.Limit, cfg.Rate.Login.Window.Std())
					forgotL = rate.NewRedisLimiter(client, cfg.Redis.Prefix+"forgot:", cfg.Rate.Forgot.Limit, cfg.Rate.Forgot.Window.Std())
					inviteL = rate.NewRedisLimiter(client, cfg.Redis.Prefix+"invite:", cfg.Rate.Invite.Limit, cfg.Rate.Invite.Window.Std())
				} else {
					loginL = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.Rate.Login.Window.Std())
					forgotL = rate.NewMemoryLimiter(cfg.Rate.Forgot.Limit, cfg.Rate.Forgot.Window.Std())
					inviteL = rate.NewMemoryLimiter(cfg.Rate.Invite.Limit, cfg.Rate.Invite.Window.Std())
				}
			}

			router := httpapi.NewRouter(httpapi.RouterDeps{
				Handlers: &httpapi.Handlers{
					Auth:    svcs.auth,
					Invites: svcs.invites,
					JWT:     svcs.jwt,
					Store:   store,
				},
				Auth: &httpapi.Authenticator{
					Issuer:   svcs.jwt,
					Resolver: svcs.sessions,
				},
				CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
				LoginLimiter:       loginL,
				ForgotLimiter:      forgotL,
				InviteLimiter:      inviteL,
			})

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.L().Info("http server listening", logger.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.L().Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
