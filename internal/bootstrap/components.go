package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/generation"
	"github.com/phrazzld/studytools/internal/notification"
	"github.com/phrazzld/studytools/internal/platform/gemini"
	"github.com/phrazzld/studytools/internal/platform/taskqueue"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/phrazzld/studytools/internal/task"
	"github.com/phrazzld/studytools/internal/worker"
	"github.com/redis/go-redis/v9"
)

// NewGenerator builds the generative backend selected by cfg.Provider.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		g, err := gemini.NewGeminiGenerator(ctx, logger, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		logger.Info("LLM generator initialized", "provider", cfg.Provider, "model", cfg.ModelName)
		return g, nil
	case "sample":
		logger.Warn("using sample generator; artifacts are canned")
		return generation.SampleGenerator{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

// NewWorker builds the generation worker. tasks should be the store the
// change feed observes so claims and terminal writes are broadcast.
func NewWorker(
	cfg *config.Config,
	tasks store.TaskStore,
	stores *Stores,
	generator generation.Generator,
	logger *slog.Logger,
) (*worker.Worker, error) {
	prompts, err := generation.NewPromptBuilder(0)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	notifier, err := notification.NewEmitter(stores.Notifications, logger)
	if err != nil {
		return nil, err
	}
	return worker.New(worker.Config{
		GenerationTimeout:    cfg.Worker.GenerationTimeout,
		LeaseDuration:        cfg.Worker.LeaseDuration,
		TerminalWriteRetries: uint64(cfg.Worker.TerminalWriteRetries),
	}, tasks, stores.Documents, prompts, generator, notifier, logger)
}

// ReconcilerConfig maps worker settings onto the stale-task sweep.
func ReconcilerConfig(cfg config.WorkerConfig) task.ReconcilerConfig {
	return task.ReconcilerConfig{
		Interval:          cfg.ReconcileInterval,
		StalePendingAfter: cfg.StalePendingAfter,
	}
}

// RedisEnabled reports whether a Redis address is configured.
func RedisEnabled(cfg config.RedisConfig) bool {
	return cfg.Addr != ""
}

// AsynqConnOpt returns the queue connection options for cfg.
func AsynqConnOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewRedisClient returns a go-redis client for the change feed.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// QueueClientConfig maps worker settings onto the queue client.
func QueueClientConfig(cfg config.WorkerConfig) taskqueue.ClientConfig {
	return taskqueue.ClientConfig{
		MaxRetry: cfg.MaxDeliveries,
		Timeout:  cfg.LeaseDuration,
	}
}
