package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bissquit/statusboard/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				databaseURL, err := loadDatabaseURL()
				if err != nil {
					return err
				}
				if err := migrations.Up(databaseURL); err != nil {
					return err
				}
				slog.Info("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				databaseURL, err := loadDatabaseURL()
				if err != nil {
					return err
				}
				if err := migrations.Down(databaseURL); err != nil {
					return err
				}
				slog.Info("migrations rolled back")
				return nil
			},
		},
	)

	return cmd
}
