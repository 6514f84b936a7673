package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database, runs migrations and records the
// configured export file paths in the ledger.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := seedFilePaths(db, config); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// seedFilePaths records the configured export file locations in the ledger
// so the file-backed sources know what to import.
func seedFilePaths(db *sql.DB, config *shared.Config) error {
	ledger := repositories.NewLedgerRepository(db)
	paths := map[models.Source]string{
		models.SourceRoonTracks:      config.Files.RoonTracks,
		models.SourceRoonPlayHistory: config.Files.RoonPlayHistory,
	}

	for source, path := range paths {
		if path == "" {
			continue
		}
		if err := ledger.SetFilePath(source, path); err != nil {
			return fmt.Errorf("failed to seed file path for %s: %w", source, err)
		}
	}

	return nil
}

// SetupConfig writes the embedded example config for hand editing.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	outputPath := cmd.String("output")

	if err := shared.CreateConfigFile(outputPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", outputPath)
	r.writePlain("✓ Config written to %s\n", outputPath)
	r.writePlain("Edit the roon, discogs and files sections, then run 'shelfsync setup database'\n")

	return nil
}
