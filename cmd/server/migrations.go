package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/studytools/internal/bootstrap"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/platform/postgres"
)

// handleMigrations runs a goose command against the configured database.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Database.Driver != "postgres" {
		return errors.New("migrations require the postgres driver")
	}

	db, err := bootstrap.SetupDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", "error", err)
		}
	}()

	logger.Info("Executing migrations", "command", command)
	if err := postgres.Migrate(ctx, db, command, logger); err != nil {
		return err
	}
	logger.Info("Migrations finished", "command", command)
	return nil
}
