package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/identity"
	"github.com/phrazzld/studytools/internal/metrics"
	"github.com/phrazzld/studytools/internal/store"
	"golang.org/x/time/rate"
)

// MaxIdempotencyKeyLength bounds client-supplied idempotency keys.
const MaxIdempotencyKeyLength = 128

const (
	defaultFallbackDelay = 30 * time.Second
	triggerTimeout       = 10 * time.Second
	limiterCacheSize     = 10000
)

// Trigger asks for a task to be processed.
type Trigger interface {
	Invoke(ctx context.Context, taskID uuid.UUID) (accepted bool, err error)
}

// FallbackListener receives the re-read state of a task once the fallback
// delay has passed after submission.
type FallbackListener func(ctx context.Context, task *domain.Task)

// ToolServiceConfig tunes the submitter.
type ToolServiceConfig struct {
	// FallbackDelay is how long after submission the task is re-read for
	// fallback listeners.
	FallbackDelay time.Duration

	// RatePerMinute limits submissions per owner. Zero disables the limit.
	RatePerMinute int
	Burst         int
}

// GenerateOption customizes a GenerateTool call.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	idempotencyKey string
}

// WithIdempotencyKey makes repeated submissions with the same key return the
// task created first instead of a new one.
func WithIdempotencyKey(key string) GenerateOption {
	return func(o *generateOptions) {
		o.idempotencyKey = key
	}
}

// TaskQuery narrows ListTasks. Nil fields match everything.
type TaskQuery struct {
	DocumentID *uuid.UUID
	ToolType   *domain.ToolType
}

// ToolService submits generation requests and serves owner-scoped task reads.
type ToolService struct {
	tasks    store.TaskStore
	trigger  Trigger
	config   ToolServiceConfig
	limiters *expirable.LRU[uuid.UUID, *rate.Limiter]
	logger   *slog.Logger

	mu        sync.Mutex
	listeners []FallbackListener
	timers    map[uuid.UUID]*time.Timer
	closed    bool
	wg        sync.WaitGroup
}

// NewToolService creates a ToolService.
func NewToolService(tasks store.TaskStore, trigger Trigger, config ToolServiceConfig, logger *slog.Logger) (*ToolService, error) {
	if tasks == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if trigger == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "trigger cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.FallbackDelay <= 0 {
		config.FallbackDelay = defaultFallbackDelay
	}

	s := &ToolService{
		tasks:   tasks,
		trigger: trigger,
		config:  config,
		logger:  logger.With("component", "tool_service"),
		timers:  make(map[uuid.UUID]*time.Timer),
	}
	if config.RatePerMinute > 0 {
		// Idle owners age out so the limiter set stays bounded.
		s.limiters = expirable.NewLRU[uuid.UUID, *rate.Limiter](limiterCacheSize, nil, time.Hour)
	}
	return s, nil
}

// OnFallback registers a listener for fallback re-reads.
func (s *ToolService) OnFallback(listener FallbackListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// GenerateTool records a pending task for the caller and triggers it
// asynchronously. It returns as soon as the task is stored.
func (s *ToolService) GenerateTool(
	ctx context.Context,
	documentID uuid.UUID,
	toolType domain.ToolType,
	opts ...GenerateOption,
) (*domain.Task, error) {
	ownerID, err := identity.OwnerFrom(ctx)
	if err != nil {
		return nil, err
	}

	var o generateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.idempotencyKey) > MaxIdempotencyKeyLength {
		return nil, fmt.Errorf("%w: idempotency key longer than %d bytes", domain.ErrValidation, MaxIdempotencyKeyLength)
	}

	task, err := domain.NewTask(documentID, ownerID, toolType)
	if err != nil {
		return nil, err
	}
	task.IdempotencyKey = o.idempotencyKey

	// A retried submission is answered without spending a token.
	if o.idempotencyKey != "" {
		existing, err := s.tasks.GetByIdempotencyKey(ctx, ownerID, o.idempotencyKey)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "returning existing task for idempotency key",
				"task_id", existing.ID, "owner_id", ownerID)
			return existing, nil
		case !errors.Is(err, store.ErrTaskNotFound):
			return nil, NewServiceError("generate_tool", "failed to look up idempotency key", err)
		}
	}

	if !s.allow(ownerID) {
		s.logger.WarnContext(ctx, "submission rate limit exceeded", "owner_id", ownerID)
		return nil, fmt.Errorf("%w: at most %d submissions per minute", domain.ErrRateLimited, s.config.RatePerMinute)
	}

	stored, created, err := s.tasks.Create(ctx, task)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create task",
			"error", err,
			"owner_id", ownerID,
			"document_id", documentID)
		return nil, NewServiceError("generate_tool", "failed to create task", err)
	}

	log := s.logger.With("task_id", stored.ID, "owner_id", ownerID, "tool_type", toolType)
	if !created {
		log.InfoContext(ctx, "returning existing task for idempotency key")
		return stored, nil
	}

	metrics.TasksSubmitted.WithLabelValues(string(toolType)).Inc()
	log.InfoContext(ctx, "task submitted", "document_id", documentID)

	s.fire(ctx, stored.ID, log)
	s.scheduleFallback(stored, log)

	return stored, nil
}

// fire invokes the trigger in the background. Failures are only logged: the
// reconciler re-invokes tasks that stay pending.
func (s *ToolService) fire(ctx context.Context, taskID uuid.UUID, log *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		triggerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), triggerTimeout)
		defer cancel()

		accepted, err := s.trigger.Invoke(triggerCtx, taskID)
		if err != nil {
			log.ErrorContext(triggerCtx, "failed to trigger task, leaving it for reconciliation", "error", err)
			return
		}
		log.DebugContext(triggerCtx, "task triggered", "accepted", accepted)
	}()
}

func (s *ToolService) scheduleFallback(task *domain.Task, log *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.listeners) == 0 {
		return
	}

	id := task.ID
	s.timers[id] = time.AfterFunc(s.config.FallbackDelay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		listeners := append([]FallbackListener(nil), s.listeners...)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()

		current, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			log.WarnContext(ctx, "fallback re-read failed", "error", err)
			return
		}
		for _, listener := range listeners {
			listener(ctx, current)
		}
	})
}

func (s *ToolService) allow(ownerID uuid.UUID) bool {
	if s.limiters == nil {
		return true
	}
	limiter, ok := s.limiters.Get(ownerID)
	if !ok {
		burst := s.config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(s.config.RatePerMinute)/60), burst)
		s.limiters.Add(ownerID, limiter)
	}
	return limiter.Allow()
}

// GetTask returns one of the caller's tasks. Tasks of other owners are
// reported as not found.
func (s *ToolService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	ownerID, err := identity.OwnerFrom(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to retrieve task", err)
	}
	if task.OwnerID != ownerID {
		s.logger.WarnContext(ctx, "task requested by non-owner",
			"task_id", taskID,
			"owner_id", ownerID)
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks returns the caller's tasks matching q, newest first.
func (s *ToolService) ListTasks(ctx context.Context, q TaskQuery) ([]*domain.Task, error) {
	ownerID, err := identity.OwnerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if q.ToolType != nil && !q.ToolType.Valid() {
		return nil, fmt.Errorf("%w: unrecognized tool type %q", domain.ErrValidation, *q.ToolType)
	}

	tasks, err := s.tasks.List(ctx, store.TaskFilter{
		OwnerID:    ownerID,
		DocumentID: q.DocumentID,
		ToolType:   q.ToolType,
	})
	if err != nil {
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// Close cancels pending fallback re-reads and waits for in-flight triggers.
func (s *ToolService) Close() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
