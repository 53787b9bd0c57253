package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotiq/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
//
// A config file is created from the embedded template when none exists.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else if config, err := shared.LoadConfig(r.configPath); err == nil {
				r.config = config
			}
		}
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := shared.MigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v (version %d)", r.config.Database.Path, version)
	return nil
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, err := shared.MigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	r.writePlain("✓ Rolled back to version %d\n", version)
	return nil
}

// openDatabase opens the configured database and brings its schema up to date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	r.logger.Debug("opening database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}
