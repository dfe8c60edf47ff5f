package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/studytools/internal/bootstrap"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/events"
	"github.com/phrazzld/studytools/internal/feed"
	"github.com/phrazzld/studytools/internal/metrics"
	"github.com/phrazzld/studytools/internal/platform/taskqueue"
	"github.com/phrazzld/studytools/internal/task"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// workerApp holds the worker process's dependencies.
type workerApp struct {
	config *config.Config
	logger *slog.Logger

	stores     *bootstrap.Stores
	redis      *redis.Client
	queue      *taskqueue.Client
	server     *taskqueue.Server
	reconciler *task.Reconciler
}

func newWorkerApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*workerApp, error) {
	app := &workerApp{config: cfg, logger: logger}

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.stores = stores

	if err := app.wire(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	return app, nil
}

func (app *workerApp) wire(ctx context.Context) error {
	cfg := app.config

	app.redis = bootstrap.NewRedisClient(cfg.Redis)
	emitter := events.NewInMemoryEventEmitter(app.logger)
	emitter.RegisterHandler(feed.NewRedisPublisher(app.redis, feed.DefaultChannel, app.logger))
	tasks := feed.NewNotifyingTaskStore(app.stores.Tasks, emitter, app.logger)

	generator, err := bootstrap.NewGenerator(ctx, cfg.LLM, app.logger)
	if err != nil {
		return err
	}
	w, err := bootstrap.NewWorker(cfg, tasks, app.stores, generator, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	connOpt := bootstrap.AsynqConnOpt(cfg.Redis)
	app.server = taskqueue.NewServer(connOpt, taskqueue.ServerConfig{
		Concurrency:     cfg.Worker.Concurrency,
		ShutdownTimeout: shutdownTimeout,
	}, w, app.logger)

	// The reconciler re-enqueues stale tasks; the queue's unique window
	// keeps it from duplicating entries that are still live.
	app.queue = taskqueue.NewClient(connOpt, bootstrap.QueueClientConfig(cfg.Worker), app.logger)
	app.reconciler, err = task.NewReconciler(app.stores.Tasks, app.queue, bootstrap.ReconcilerConfig(cfg.Worker), app.logger)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}
	return nil
}

// Run consumes the queue until ctx is canceled.
func (app *workerApp) Run(ctx context.Context) error {
	if err := app.server.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	app.logger.Info("Worker started", "concurrency", app.config.Worker.Concurrency)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reconciler.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("Shutting down worker...")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("health server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Health server shutdown failed", "error", err)
	}

	app.server.Shutdown()
	wg.Wait()
	app.cleanup()
	app.logger.Info("Worker shutdown completed")
	return runErr
}

// setupRouter serves liveness and metrics for the worker process.
func (app *workerApp) setupRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := app.redis.Ping(r.Context()).Err(); err != nil {
			app.logger.Error("Health check failed", "error", err)
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (app *workerApp) cleanup() {
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Error("Failed to close queue client", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Failed to close Redis client", "error", err)
		}
	}
	if app.stores != nil {
		if err := app.stores.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
