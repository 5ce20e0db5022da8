package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/meeting-finder/internal/config"
	"github.com/example/meeting-finder/internal/persistence/sqlite"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Store != config.StoreSQLite {
				return fmt.Errorf("migrate requires SCHEDULER_STORE=%s, got %q", config.StoreSQLite, cfg.Store)
			}

			ctx := cmd.Context()
			logger := newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
			pool, err := sqlite.Open(ctx, cfg.SQLiteDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if !statusOnly {
				if err := pool.Migrate(ctx, logger); err != nil {
					return err
				}
			}

			status, err := pool.MigrationStatus(ctx, logger)
			if err != nil {
				return err
			}
			current := status.CurrentVersion
			if current == "" {
				current = "none"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current version: %s\n", current)
			fmt.Fprintf(cmd.OutOrStdout(), "applied: %d\n", len(status.AppliedMigrations))
			fmt.Fprintf(cmd.OutOrStdout(), "pending: %d\n", len(status.PendingMigrations))
			for _, mig := range status.PendingMigrations {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", mig.Version, mig.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report migration status without applying")
	return cmd
}
