package main

import (
	"fmt"
	"time"

	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/spf13/cobra"
)

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Borra tokens vencidos y marca invitaciones expiradas",
		Long: `Housekeeping operado por cron externo: no hay scheduler in-process.
Los tokens vencidos se borran; las invitaciones PENDING vencidas pasan a
EXPIRED (la fila se conserva para el historial de la UI).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			svcs, err := buildServices(cfg, store)
			if err != nil {
				return err
			}
			nTokens, err := svcs.tokens.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			nInvs, err := store.Invitations().DeleteExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("purged %d tokens, expired %d invitations\n", nTokens, nInvs)
			return nil
		},
	}
}
