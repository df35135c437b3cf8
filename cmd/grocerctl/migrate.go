package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-grocer/internal/store"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, false)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigrate(cmd *cobra.Command, up bool) error {
	if err := requireDatabaseURL(); err != nil {
		return err
	}
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if up {
		err = store.MigrateUp(m)
	} else {
		err = store.MigrateDown(m, migrateSteps)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, dirty, verr := m.Version()
	if verr != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "migrations: no version applied")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations: version %d (dirty=%t)\n", version, dirty)
	return nil
}
