package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aawaaz/ticket-server/internal/config"
	"github.com/aawaaz/ticket-server/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				return m.Down(steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *database.Migrator) error {
					return m.Up()
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *database.Migrator) error {
					if err := m.Status(); err != nil {
						return err
					}
					version, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "current version: %d\n", version)
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(fn func(m *database.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StoreBackend != "postgres" {
		return fmt.Errorf("migrations need STORE_BACKEND=postgres, got %q", cfg.StoreBackend)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	return fn(database.NewMigrator(cfg.DatabaseURL, logger.Sugar()))
}
