package main

import (
	"fmt"

	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/spf13/cobra"
)

func bootstrapCmd() *cobra.Command {
	var firstName, lastName string
	cmd := &cobra.Command{
		Use:   "bootstrap-superadmin <email>",
		Short: "Crea el SUPER_ADMIN de plataforma",
		Long: `Crea el tenant de plataforma (si no existe) y un SUPER_ADMIN con password
temporal. El password temporal y el link de reset se imprimen una sola vez;
el primer login exige rotar el password vía ese link.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			svcs, err := buildServices(cfg, store)
			if err != nil {
				return err
			}
			res, err := svcs.auth.BootstrapSuperAdmin(cmd.Context(), args[0], firstName, lastName)
			if err != nil {
				return err
			}
			fmt.Printf("superadmin created: %s\n", args[0])
			fmt.Printf("temporary password: %s\n", res.TempPassword)
			fmt.Printf("reset link:         %s\n", res.ResetLink)
			return nil
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "Platform", "nombre")
	cmd.Flags().StringVar(&lastName, "last-name", "Admin", "apellido")
	return cmd
}
