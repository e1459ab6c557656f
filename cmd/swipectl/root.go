package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/backend/internal/config"
	"github.com/jobswipe/backend/internal/infra/logger"
)

type cliState struct {
	cfgPath string
	cfg     config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "swipectl",
		Short:         "operations tool for the swipe engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		Example: `swipectl migrate up
swipectl migrate status
swipectl reconcile --batch-size 1000`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(state.cfgPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level, cfg.Env)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if state.log != nil {
				_ = state.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&state.cfgPath, "config", "c", config.DefaultPath(), "path to the YAML config")

	root.AddCommand(newMigrateCmd(state))
	root.AddCommand(newReconcileCmd(state))
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

func (s *cliState) openSQL() (*sql.DB, error) {
	db, err := sql.Open("pgx", s.cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}
