// Package main implements the study tools API server. It accepts tool
// generation requests for documents, runs or enqueues the generation work and
// streams task changes to clients over websockets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "Run database migrations (up|down|status|version) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateCmd != "" {
		if err := handleMigrations(ctx, cfg, *migrateCmd, l); err != nil {
			l.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, l); err != nil {
		l.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// run builds the application and serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"llm_provider", cfg.LLM.Provider,
		"redis_enabled", cfg.Redis.Addr != "")

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
