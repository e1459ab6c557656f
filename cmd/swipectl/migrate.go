package main

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/backend/migrations"
)

func newMigrateCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProvider(state, func(p *goose.Provider) error {
				results, err := p.Up(cmd.Context())
				for _, r := range results {
					state.log.Info("migration applied", zap.String("source", r.Source.Path), zap.Duration("took", r.Duration))
				}
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "roll back the latest migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProvider(state, func(p *goose.Provider) error {
				result, err := p.Down(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				if result != nil {
					state.log.Info("migration rolled back", zap.String("source", result.Source.Path))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "print the state of every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProvider(state, func(p *goose.Provider) error {
				statuses, err := p.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				for _, st := range statuses {
					applied := "pending"
					if st.State == goose.StateApplied {
						applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", st.Source.Path, applied)
				}
				return nil
			})
		},
	})

	return cmd
}

func withProvider(state *cliState, fn func(*goose.Provider) error) error {
	db, err := state.openSQL()
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		return err
	}
	return fn(provider)
}
