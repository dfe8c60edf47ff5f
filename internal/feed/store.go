package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/events"
	"github.com/phrazzld/studytools/internal/store"
)

// NotifyingTaskStore decorates a TaskStore so that every committed insert
// and update is emitted as a change event. Emit failures are logged and do
// not fail the write.
type NotifyingTaskStore struct {
	store.TaskStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ store.TaskStore = (*NotifyingTaskStore)(nil)

// NewNotifyingTaskStore wraps next.
func NewNotifyingTaskStore(next store.TaskStore, emitter events.EventEmitter, logger *slog.Logger) *NotifyingTaskStore {
	return &NotifyingTaskStore{
		TaskStore: next,
		emitter:   emitter,
		logger:    logger.With(slog.String("component", "notifying_task_store")),
	}
}

// Create implements store.TaskStore. Only a newly inserted task is emitted.
func (s *NotifyingTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, bool, error) {
	stored, created, err := s.TaskStore.Create(ctx, task)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.emit(ctx, events.ChangeInsert, stored)
	}
	return stored, created, nil
}

// Transition implements store.TaskStore.
func (s *NotifyingTaskStore) Transition(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	to domain.TaskStatus,
	result *domain.Result,
) (*domain.Task, error) {
	task, err := s.TaskStore.Transition(ctx, id, workerID, to, result)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.ChangeUpdate, task)
	return task, nil
}

// Claim implements store.TaskStore.
func (s *NotifyingTaskStore) Claim(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) (*domain.Task, error) {
	task, err := s.TaskStore.Claim(ctx, id, workerID, lease)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.ChangeUpdate, task)
	return task, nil
}

func (s *NotifyingTaskStore) emit(ctx context.Context, kind events.ChangeKind, task *domain.Task) {
	if err := s.emitter.EmitEvent(ctx, events.NewTaskChangeEvent(kind, task)); err != nil {
		s.logger.WarnContext(ctx, "failed to emit task change",
			slog.String("task_id", task.ID.String()),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}
}
