package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"complaint-desk/internal/app"
	"complaint-desk/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and seed the default complaint types",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, cleanup := app.Logger(cfg)
	defer cleanup()

	db, err := app.OpenDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	if err := repo.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrate: ok")
	return nil
}
