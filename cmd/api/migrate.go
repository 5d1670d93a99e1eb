package main

import (
	"catalog-api/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|status]",
		Short: "Manage the catalog database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbService, log, err := migrationDB(cmd)
			if err != nil {
				return err
			}
			defer dbService.Close()
			defer func() { _ = log.Sync() }()

			return database.RunMigrations(dbService.DB(), log)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbService, _, err := migrationDB(cmd)
			if err != nil {
				return err
			}
			defer dbService.Close()

			return database.GetMigrationStatus(dbService.DB())
		},
	})

	return migrateCmd
}
