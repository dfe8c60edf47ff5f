// Package main implements the generation worker. It consumes generation
// entries from the Redis work queue, runs each task to a terminal status and
// publishes every task change to the Redis change feed.
package main

import (
	"context"
	"errors"
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
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	if err := validateWorkerConfig(cfg); err != nil {
		l.Error("Invalid worker configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
}

// validateWorkerConfig rejects settings a standalone worker cannot run with:
// it shares state with the API server only through Redis and Postgres.
func validateWorkerConfig(cfg *config.Config) error {
	var errs []error
	if cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if cfg.Database.Driver != "postgres" {
		errs = append(errs, fmt.Errorf("database.driver must be postgres, got %q", cfg.Database.Driver))
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	l.Info("Worker configuration loaded",
		"concurrency", cfg.Worker.Concurrency,
		"llm_provider", cfg.LLM.Provider,
		"redis_addr", cfg.Redis.Addr)

	app, err := newWorkerApp(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}
	return app.Run(ctx)
}
