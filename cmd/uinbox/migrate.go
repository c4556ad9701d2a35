package main

import (
	"fmt"

	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/store/pg"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate: storage driver %q has no migrations", cfg.Storage.Driver)
			}
			store, err := pg.New(cmd.Context(), cfg.Storage.DSN, pg.Config{})
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.RunMigrations(cmd.Context(), cfg.Storage.MigrationsDir); err != nil {
				return err
			}
			logger.L().Info("migrations applied", logger.String("dir", cfg.Storage.MigrationsDir))
			return nil
		},
	}
}
