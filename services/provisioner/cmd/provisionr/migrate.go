package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"provisionr/pkg/db"
	"provisionr/services/provisioner/internal/config"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := commandLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			dbCfg := cfg.DB()
			dbCfg.Logger = log
			store, err := db.Connect(ctx, dbCfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", store.Driver)
			return nil
		},
	}
}
