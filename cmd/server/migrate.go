package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables or indexes for the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.migrate(ctx, cfg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			slog.Info("migration complete", "driver", cfg.DatabaseDriver)
			return nil
		},
	}
}
