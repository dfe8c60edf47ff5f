package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
)

// TaskFilter narrows ListTasks. Nil fields match everything.
type TaskFilter struct {
	OwnerID    uuid.UUID
	DocumentID *uuid.UUID
	ToolType   *domain.ToolType
}

// Matches reports whether task satisfies the filter.
func (f TaskFilter) Matches(task *domain.Task) bool {
	if task.OwnerID != f.OwnerID {
		return false
	}
	if f.DocumentID != nil && task.DocumentID != *f.DocumentID {
		return false
	}
	if f.ToolType != nil && task.ToolType != *f.ToolType {
		return false
	}
	return true
}

// TaskStore defines the interface for task persistence and the task state machine.
// Version: 1.0
type TaskStore interface {
	// Create inserts a pending task with no result. When the task carries an
	// idempotency key already used by the same owner, the existing task is
	// returned with created=false.
	Create(ctx context.Context, task *domain.Task) (stored *domain.Task, created bool, err error)

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetByIdempotencyKey returns the owner's task submitted with key.
	// Returns ErrTaskNotFound if there is none.
	GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*domain.Task, error)

	// List returns the owner's tasks, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Transition moves a task to a new status under a row lock, enforcing the
	// state machine. Returns domain.ErrInvalidTransition for illegal moves.
	// A non-empty workerID must own the lease of a processing task, otherwise
	// ErrLeaseHeld is returned.
	Transition(ctx context.Context, id uuid.UUID, workerID string, to domain.TaskStatus, result *domain.Result) (*domain.Task, error)

	// Claim atomically moves a pending task to processing and records a lease
	// for workerID. A processing task whose lease has expired may be
	// re-claimed. Returns ErrLeaseHeld when the task is not claimable.
	Claim(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) (*domain.Task, error)

	// ListStale returns pending tasks created before pendingBefore and
	// processing tasks whose lease expired before now.
	ListStale(ctx context.Context, pendingBefore, now time.Time, limit int) ([]*domain.Task, error)
}

// CheckLease reports ErrLeaseHeld when workerID is set and a processing task
// is leased to someone else.
func CheckLease(task *domain.Task, workerID string) error {
	if workerID == "" || task.Status != domain.TaskStatusProcessing || task.LeaseOwner == workerID {
		return nil
	}
	return fmt.Errorf("%w: task %s is leased to %q", ErrLeaseHeld, task.ID, task.LeaseOwner)
}
