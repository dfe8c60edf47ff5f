package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/studytools/internal/auth"
	"github.com/phrazzld/studytools/internal/bootstrap"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/events"
	"github.com/phrazzld/studytools/internal/feed"
	"github.com/phrazzld/studytools/internal/notification"
	"github.com/phrazzld/studytools/internal/platform/taskqueue"
	"github.com/phrazzld/studytools/internal/service"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/phrazzld/studytools/internal/task"
	"github.com/redis/go-redis/v9"
)

// application holds the server's dependencies.
//
// Without Redis everything runs in this process: task changes go straight to
// the broker and submissions are handed to an in-process runner. With Redis,
// submissions are enqueued for cmd/worker and task changes from every process
// reach the broker through the relay.
type application struct {
	config *config.Config
	logger *slog.Logger

	stores        *bootstrap.Stores
	tasks         store.TaskStore
	broker        *feed.Broker
	jwtService    *auth.JWTService
	toolService   *service.ToolService
	notifications *notification.Emitter

	runner     *task.Runner
	reconciler *task.Reconciler
	queue      *taskqueue.Client
	redis      *redis.Client
	relay      *feed.RedisRelay

	cancelBackground context.CancelFunc
	background       sync.WaitGroup
}

// newApplication wires the stores, change feed, trigger and services.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

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

func (app *application) wire(ctx context.Context) error {
	cfg := app.config

	app.broker = feed.NewBroker(app.logger, 0)
	emitter := events.NewInMemoryEventEmitter(app.logger)
	app.tasks = feed.NewNotifyingTaskStore(app.stores.Tasks, emitter, app.logger)

	var trigger service.Trigger
	if bootstrap.RedisEnabled(cfg.Redis) {
		app.redis = bootstrap.NewRedisClient(cfg.Redis)
		emitter.RegisterHandler(feed.NewRedisPublisher(app.redis, feed.DefaultChannel, app.logger))
		app.relay = feed.NewRedisRelay(app.redis, feed.DefaultChannel, app.broker, app.logger)
		app.queue = taskqueue.NewClient(bootstrap.AsynqConnOpt(cfg.Redis), bootstrap.QueueClientConfig(cfg.Worker), app.logger)
		trigger = app.queue
		app.logger.Info("Using Redis work queue and change feed", "addr", cfg.Redis.Addr)
	} else {
		emitter.RegisterHandler(app.broker)

		generator, err := bootstrap.NewGenerator(ctx, cfg.LLM, app.logger)
		if err != nil {
			return err
		}
		w, err := bootstrap.NewWorker(cfg, app.tasks, app.stores, generator, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create worker: %w", err)
		}
		app.runner, err = task.NewRunner(w, task.RunnerConfig{
			WorkerCount: cfg.Worker.Concurrency,
			QueueSize:   cfg.Worker.QueueSize,
			TaskTimeout: cfg.Worker.LeaseDuration,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create task runner: %w", err)
		}
		app.reconciler, err = task.NewReconciler(app.stores.Tasks, app.runner, bootstrap.ReconcilerConfig(cfg.Worker), app.logger)
		if err != nil {
			return fmt.Errorf("failed to create reconciler: %w", err)
		}
		trigger = app.runner
		app.logger.Info("Using in-process task runner", "workers", cfg.Worker.Concurrency)
	}

	toolService, err := service.NewToolService(app.tasks, trigger, service.ToolServiceConfig{
		FallbackDelay: cfg.Submitter.FallbackDelay,
		RatePerMinute: cfg.Submitter.RatePerMinute,
		Burst:         cfg.Submitter.Burst,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create tool service: %w", err)
	}
	// Fallback re-reads reach open streams through the broker, so a missed
	// feed event still surfaces within the fallback delay.
	toolService.OnFallback(func(ctx context.Context, t *domain.Task) {
		if err := app.broker.HandleEvent(ctx, events.NewTaskChangeEvent(events.ChangeUpdate, t)); err != nil {
			app.logger.Warn("Failed to forward fallback read", "task_id", t.ID, "error", err)
		}
	})
	app.toolService = toolService

	app.notifications, err = notification.NewEmitter(app.stores.Notifications, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create notification emitter: %w", err)
	}
	return nil
}

// startBackground launches the runner, reconciler and relay.
func (app *application) startBackground(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	app.cancelBackground = cancel

	if app.runner != nil {
		app.runner.Start()
	}
	if app.reconciler != nil {
		app.background.Add(1)
		go func() {
			defer app.background.Done()
			app.reconciler.Run(ctx)
		}()
	}
	if app.relay != nil {
		app.background.Add(1)
		go func() {
			defer app.background.Done()
			if err := app.relay.Run(ctx); err != nil {
				app.logger.Error("Change feed relay stopped", "error", err)
			}
		}()
	}
}

// Run serves HTTP until ctx is canceled, then shuts down.
func (app *application) Run(ctx context.Context) error {
	app.startBackground(ctx)
	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases resources in reverse dependency order.
func (app *application) cleanup() {
	if app.toolService != nil {
		app.toolService.Close()
	}
	if app.cancelBackground != nil {
		app.cancelBackground()
	}
	app.background.Wait()

	if app.runner != nil {
		app.runner.Stop()
	}
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Error("Failed to close queue client", "error", err)
		}
	}
	if app.broker != nil {
		app.broker.Close()
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
