package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"zenhabit/pkg/db"
	"zenhabit/pkg/logger"
	"zenhabit/pkg/streak"
)

func streakCmd() *cobra.Command {
	var (
		userID int
		date   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show current streaks for a user's habits",
		Long: `Recompute the current streak of every habit owned by a user.

--date evaluates the streaks as of that day instead of today, which is
useful when checking reports about past days.

Examples:
  habitctl streak --user 42
  habitctl streak --user 42 --date 2024-06-12 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			loc := cfg.App.Location()

			today := time.Now().In(loc)
			if date != "" {
				today, err = streak.ParseKey(date, loc)
				if err != nil {
					return err
				}
			}

			log := logger.NewLogger()
			defer log.Sync()

			pool, err := db.NewConnection(cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			rows, err := loadReport(cmd.Context(), pool, userID, today)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return writeReport(cmd.OutOrStdout(), streak.Key(today), rows)
		},
	}

	cmd.Flags().IntVarP(&userID, "user", "u", 0, "user id")
	cmd.Flags().StringVarP(&date, "date", "d", "", "evaluate as of YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func loadReport(ctx context.Context, pool *pgxpool.Pool, userID int, today time.Time) ([]reportRow, error) {
	habits, err := queryHabits(ctx, pool, userID)
	if err != nil {
		return nil, err
	}
	milestones, err := queryMilestoneDates(ctx, pool, userID)
	if err != nil {
		return nil, err
	}
	return buildReport(habits, milestones, today), nil
}
