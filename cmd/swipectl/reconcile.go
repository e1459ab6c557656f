package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobswipe/backend/internal/jobs/reconcile"
	pgrepo "github.com/jobswipe/backend/internal/repo/postgres"
)

func newReconcileCmd(state *cliState) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "reset matched records whose mirror record is gone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batchSize <= 0 {
				batchSize = state.cfg.Reconcile.BatchSize
			}

			pool, err := pgrepo.NewPool(cmd.Context(), state.cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			job := reconcile.New(pgrepo.NewSwipeRepo(pool), batchSize, nil, state.log)
			cleared, err := job.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d orphan matches\n", cleared)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per batch (defaults to reconcile.batch_size)")
	return cmd
}
