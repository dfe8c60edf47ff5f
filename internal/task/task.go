package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
)

// Processor runs one task to a terminal status.
type Processor interface {
	Process(ctx context.Context, taskID uuid.UUID) error
}

// Trigger asks for a task to be processed. accepted is false when the task
// is already queued or running.
type Trigger interface {
	Invoke(ctx context.Context, taskID uuid.UUID) (accepted bool, err error)
}

// StaleLister finds tasks that need another invocation.
type StaleLister interface {
	ListStale(ctx context.Context, pendingBefore, now time.Time, limit int) ([]*domain.Task, error)
}
