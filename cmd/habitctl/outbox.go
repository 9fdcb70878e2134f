package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"zenhabit/pkg/db"
	"zenhabit/pkg/logger"
	"zenhabit/pkg/outbox"
)

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay events that could not be published",
	}
	cmd.AddCommand(outboxFailedCmd())
	cmd.AddCommand(outboxReplayCmd())
	return cmd
}

func outboxFailedCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List events that exhausted their retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openOutbox()
			if err != nil {
				return err
			}
			defer closeFn()

			events, err := repo.Failed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			return writeEvents(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	return cmd
}

func outboxReplayCmd() *cobra.Command {
	var (
		id  int64
		all bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reset failed events to pending so the dispatcher retries them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == 0) == !all {
				return fmt.Errorf("exactly one of --id or --all is required")
			}

			repo, closeFn, err := openOutbox()
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := repo.Requeue(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d event(s)\n", n)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "event id to replay")
	cmd.Flags().BoolVar(&all, "all", false, "replay every failed event")
	return cmd
}

func openOutbox() (*outbox.Repository, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger()
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return outbox.NewRepository(pool), func() {
		pool.Close()
		_ = log.Sync()
	}, nil
}

func writeEvents(w io.Writer, events []outbox.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "no failed events")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROUTING KEY\tRETRIES\tCREATED\tLAST ERROR")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			e.ID, e.RoutingKey, e.RetryCount, e.CreatedAt.Format("2006-01-02 15:04:05"), e.LastError)
	}
	return tw.Flush()
}
