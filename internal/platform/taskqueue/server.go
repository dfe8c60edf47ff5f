package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// Processor runs one task to completion.
type Processor interface {
	Process(ctx context.Context, taskID uuid.UUID) error
}

// ServerConfig tunes the consumer.
type ServerConfig struct {
	Concurrency     int
	Queue           string
	ShutdownTimeout time.Duration
}

// Server consumes generation entries.
type Server struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor Processor
	logger    *slog.Logger
}

// NewServer creates a consumer that hands tasks to processor.
func NewServer(opt asynq.RedisConnOpt, cfg ServerConfig, processor Processor, logger *slog.Logger) *Server {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	log := logger.With(slog.String("component", "taskqueue_server"))
	s := &Server{
		mux:       asynq.NewServeMux(),
		processor: processor,
		logger:    log,
	}
	s.server = asynq.NewServer(opt, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{cfg.Queue: 1},
		Logger:          NewLogger(log),
		ShutdownTimeout: cfg.ShutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.ErrorContext(ctx, "generation delivery failed",
				slog.String("type", t.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
	})
	s.mux.HandleFunc(TypeGenerate, s.handleGenerate)
	return s
}

func (s *Server) handleGenerate(ctx context.Context, t *asynq.Task) error {
	taskID, err := ParseGenerateTask(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	err = s.processor.Process(ctx, taskID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrTaskNotFound), errors.Is(err, domain.ErrValidation):
		// Redelivery cannot fix these.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	default:
		return err
	}
}

// Start begins consuming in the background.
func (s *Server) Start() error {
	return s.server.Start(s.mux)
}

// Shutdown stops fetching new entries and waits for in-flight ones.
func (s *Server) Shutdown() {
	s.server.Shutdown()
}
