package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Emitter creates completion notices.
type Emitter struct {
	store  store.NotificationStore
	logger *slog.Logger
}

// NewEmitter creates an Emitter backed by s.
func NewEmitter(s store.NotificationStore, logger *slog.Logger) (*Emitter, error) {
	if s == nil {
		return nil, errors.New("notification store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Emitter{
		store:  s,
		logger: logger.With(slog.String("component", "notification_emitter")),
	}, nil
}

// Emit records the completion notice for task. Emitting twice for the same
// task is a no-op that returns the notification recorded first.
func (e *Emitter) Emit(ctx context.Context, task *domain.Task, doc *domain.Document) (*domain.Notification, error) {
	n, err := domain.NewToolCompleteNotification(task, doc)
	if err != nil {
		return nil, err
	}

	err = e.store.Create(ctx, n)
	switch {
	case err == nil:
		e.logger.InfoContext(ctx, "notification created",
			slog.String("notification_id", n.ID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("owner_id", task.OwnerID.String()))
		return n, nil
	case errors.Is(err, store.ErrNotificationExists):
		existing, getErr := e.store.GetByTaskID(ctx, task.ID)
		if getErr != nil {
			return nil, fmt.Errorf("load existing notification for task %s: %w", task.ID, getErr)
		}
		e.logger.DebugContext(ctx, "notification already recorded",
			slog.String("task_id", task.ID.String()))
		return existing, nil
	default:
		return nil, fmt.Errorf("create notification for task %s: %w", task.ID, err)
	}
}

// List returns the owner's notifications, newest first.
func (e *Emitter) List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner ID cannot be empty", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	notifications, err := e.store.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}
