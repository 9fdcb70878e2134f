package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zenhabit/pkg/db"
	"zenhabit/pkg/logger"
)

func migrateCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Apply the embedded schema to the configured database.

Every statement is idempotent, so running migrate against an
up-to-date database is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log := logger.NewLogger()
			defer log.Sync()

			pool, err := db.NewConnection(cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := db.Migrate(ctx, pool, log); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s@%s/%s\n", cfg.DB.User, cfg.DB.Host, cfg.DB.Name)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "migration timeout")
	return cmd
}
