package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
)

// NotificationStore persists user-visible notices.
// Version: 1.0
type NotificationStore interface {
	// Create inserts n. Returns ErrNotificationExists when a notification for
	// the same related task is already recorded.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByTaskID returns the notification recorded for a task.
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.Notification, error)

	// ListByOwner returns the owner's notifications, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Notification, error)
}
