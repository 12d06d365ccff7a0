package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clanhall/gatekeeper/internal/bootstrap"
)

const defaultMigrationTimeout = 5 * time.Minute

// connectDB opens the configured Postgres database.
func (a *app) connectDB(ctx context.Context) (*sql.DB, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: a.logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func (a *app) closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		a.logger.Warn("db close failed", "error", err)
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := a.connectDB(ctx)
			if err != nil {
				return err
			}
			defer a.closeDB(db)

			a.logger.Info("running database migrations")
			if err := bootstrap.RunMigrations(ctx, db, a.logger); err != nil {
				return err
			}
			return writef(cmd.OutOrStdout(), "migrations applied\n")
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "Maximum time to wait for migrations")
	return cmd
}
