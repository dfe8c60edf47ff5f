package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/artifact"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/generation"
	"github.com/phrazzld/studytools/internal/metrics"
	"github.com/phrazzld/studytools/internal/platform/logger"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/sethvargo/go-retry"
)

// Errors returned by New.
var (
	ErrNilTaskStore     = errors.New("task store cannot be nil")
	ErrNilDocumentStore = errors.New("document store cannot be nil")
	ErrNilPrompts       = errors.New("prompt builder cannot be nil")
	ErrNilGenerator     = errors.New("generator cannot be nil")
	ErrNilNotifier      = errors.New("notifier cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
)

const (
	defaultGenerationTimeout = 90 * time.Second
	defaultLeaseDuration     = 5 * time.Minute
	defaultRetryBaseDelay    = 100 * time.Millisecond
	terminalWriteTimeout     = 30 * time.Second
)

// Notifier records the completion notice for a task.
type Notifier interface {
	Emit(ctx context.Context, task *domain.Task, doc *domain.Document) (*domain.Notification, error)
}

// Config tunes a Worker. Zero values fall back to defaults.
type Config struct {
	// WorkerID identifies this worker in task leases.
	WorkerID string

	GenerationTimeout time.Duration
	LeaseDuration     time.Duration

	// TerminalWriteRetries bounds retries of the final status write and the
	// notification insert.
	TerminalWriteRetries uint64
	RetryBaseDelay       time.Duration
}

// Worker executes generation tasks.
type Worker struct {
	tasks     store.TaskStore
	documents store.DocumentStore
	prompts   *generation.PromptBuilder
	generator generation.Generator
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger
}

// New creates a Worker.
func New(
	cfg Config,
	tasks store.TaskStore,
	documents store.DocumentStore,
	prompts *generation.PromptBuilder,
	generator generation.Generator,
	notifier Notifier,
	log *slog.Logger,
) (*Worker, error) {
	switch {
	case tasks == nil:
		return nil, ErrNilTaskStore
	case documents == nil:
		return nil, ErrNilDocumentStore
	case prompts == nil:
		return nil, ErrNilPrompts
	case generator == nil:
		return nil, ErrNilGenerator
	case notifier == nil:
		return nil, ErrNilNotifier
	case log == nil:
		return nil, ErrNilLogger
	}

	if cfg.WorkerID == "" {
		cfg.WorkerID = "worker-" + uuid.NewString()
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = defaultLeaseDuration
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}

	return &Worker{
		tasks:     tasks,
		documents: documents,
		prompts:   prompts,
		generator: generator,
		notifier:  notifier,
		cfg:       cfg,
		logger:    log.With(slog.String("component", "worker"), slog.String("worker_id", cfg.WorkerID)),
	}, nil
}

// ID returns the lease owner name of this worker.
func (w *Worker) ID() string {
	return w.cfg.WorkerID
}

// Process runs the task identified by taskID to a terminal status.
//
// It returns an error wrapping store.ErrTaskNotFound when the task does not
// exist, and a persistence error when the terminal write could not be made
// after retries. Generation failures are not errors: they are recorded in
// the task.
func (w *Worker) Process(ctx context.Context, taskID uuid.UUID) error {
	log := w.logger.With(slog.String("task_id", taskID.String()))
	ctx = logger.WithLogger(ctx, log)

	task, err := w.tasks.GetByID(ctx, taskID)
	if err != nil {
		log.WarnContext(ctx, "failed to load task", slog.Any("error", err))
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status.Terminal() {
		log.DebugContext(ctx, "task already terminal, nothing to do", slog.String("status", string(task.Status)))
		return nil
	}

	task, err = w.tasks.Claim(ctx, taskID, w.cfg.WorkerID, w.cfg.LeaseDuration)
	if err != nil {
		if errors.Is(err, store.ErrLeaseHeld) {
			log.InfoContext(ctx, "task is held by another worker, skipping", slog.Any("error", err))
			return nil
		}
		return fmt.Errorf("claim task %s: %w", taskID, err)
	}

	log = log.With(slog.String("tool_type", string(task.ToolType)), slog.Int("attempt", task.Attempts))
	ctx = logger.WithLogger(ctx, log)
	log.InfoContext(ctx, "starting generation task")

	doc, result := w.generate(ctx, task)
	if result.Failure != nil && ctx.Err() != nil {
		// Shutdown or a dropped delivery, not a verdict on the task. The
		// lease runs out and the task is picked up again.
		log.WarnContext(ctx, "generation interrupted, leaving task for redelivery", slog.Any("error", ctx.Err()))
		return fmt.Errorf("task %s interrupted: %w", task.ID, ctx.Err())
	}
	return w.finish(ctx, task, doc, result)
}

// generate produces the terminal result for a claimed task. It never
// returns a nil result.
func (w *Worker) generate(ctx context.Context, task *domain.Task) (*domain.Document, *domain.Result) {
	log := logger.FromContextOrDefault(ctx, w.logger)

	doc, err := w.loadDocument(ctx, task)
	if err != nil {
		log.WarnContext(ctx, "document unavailable", slog.Any("error", err))
		return nil, domain.FailedResult(domain.NewFailure(err))
	}

	req, err := w.prompts.Build(task.ToolType, doc)
	if err != nil {
		log.ErrorContext(ctx, "failed to build prompt", slog.Any("error", err))
		return doc, domain.FailedResult(domain.NewFailure(err))
	}

	raw, err := w.callGenerator(ctx, task, req)
	if err != nil {
		log.WarnContext(ctx, "generation failed", slog.Any("error", err))
		return doc, domain.FailedResult(domain.NewFailure(err))
	}

	a, err := artifact.Validate(task.ToolType, raw)
	if err != nil {
		log.WarnContext(ctx, "generated output rejected",
			slog.Any("error", err),
			slog.Int("output_length", len(raw)))
		return doc, domain.FailedResult(domain.NewFailure(err))
	}

	return doc, domain.CompletedResult(a)
}

func (w *Worker) loadDocument(ctx context.Context, task *domain.Task) (*domain.Document, error) {
	doc, err := w.documents.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", domain.ErrDocumentUnavailable, task.DocumentID, err)
	}
	if doc.OwnerID != uuid.Nil && doc.OwnerID != task.OwnerID {
		return nil, fmt.Errorf("%w: document %s does not belong to the task owner", domain.ErrDocumentUnavailable, task.DocumentID)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: document %s has no text content", domain.ErrDocumentUnavailable, task.DocumentID)
	}
	return doc, nil
}

func (w *Worker) callGenerator(ctx context.Context, task *domain.Task, req generation.Request) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, w.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	raw, err := w.generator.Generate(genCtx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.GenerationDuration.WithLabelValues(string(task.ToolType), "error").Observe(elapsed)
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, generation.ErrTimeout) {
			return "", fmt.Errorf("%w: no answer within %s: %v", generation.ErrTimeout, w.cfg.GenerationTimeout, err)
		}
		if !errors.Is(err, domain.ErrUpstream) {
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
		return "", err
	}

	metrics.GenerationDuration.WithLabelValues(string(task.ToolType), "ok").Observe(elapsed)
	return raw, nil
}

// finish writes the terminal status and, on success, the notification.
func (w *Worker) finish(ctx context.Context, task *domain.Task, doc *domain.Document, result *domain.Result) error {
	log := logger.FromContextOrDefault(ctx, w.logger)

	status := domain.TaskStatusCompleted
	if result.Failure != nil {
		status = domain.TaskStatusFailed
	}

	// The terminal write must outlive a cancelled delivery context.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	var updated *domain.Task
	err := w.withRetry(writeCtx, func(ctx context.Context) error {
		var err error
		updated, err = w.tasks.Transition(ctx, task.ID, w.cfg.WorkerID, status, result)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, store.ErrLeaseHeld) {
			log.WarnContext(ctx, "task was finished or taken over elsewhere, dropping result",
				slog.String("status", string(status)),
				slog.Any("error", err))
			return nil
		}
		log.ErrorContext(ctx, "failed to record terminal status", slog.Any("error", err))
		return fmt.Errorf("record %s status for task %s: %w", status, task.ID, err)
	}

	metrics.TaskTransitions.WithLabelValues(string(task.ToolType), string(status)).Inc()
	if status == domain.TaskStatusFailed {
		metrics.TaskFailures.WithLabelValues(string(result.Failure.Kind)).Inc()
		log.InfoContext(ctx, "generation task failed",
			slog.String("kind", string(result.Failure.Kind)),
			slog.String("message", result.Failure.Message))
		return nil
	}

	log.InfoContext(ctx, "generation task completed")

	err = w.withRetry(writeCtx, func(ctx context.Context) error {
		_, err := w.notifier.Emit(ctx, updated, doc)
		return err
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to record completion notification, task result is saved",
			slog.Any("error", err))
		return nil
	}
	metrics.NotificationsCreated.Inc()
	return nil
}

// withRetry retries fn while it fails with a persistence error.
func (w *Worker) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(w.cfg.RetryBaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(w.cfg.TerminalWriteRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && errors.Is(err, domain.ErrPersistence) {
			logger.FromContextOrDefault(ctx, w.logger).WarnContext(ctx, "persistence failure, retrying", slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return err
	})
}
