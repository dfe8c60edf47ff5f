package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
)

// ChangeKind distinguishes task inserts from updates.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
)

// TaskChangeEvent reports that a task row changed.
type TaskChangeEvent struct {
	// ID uniquely identifies the event, not the task.
	ID uuid.UUID `json:"id"`

	Kind ChangeKind `json:"kind"`

	// Task is a snapshot taken when the change was committed.
	Task *domain.Task `json:"task"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskChangeEvent snapshots task into a new event.
func NewTaskChangeEvent(kind ChangeKind, task *domain.Task) *TaskChangeEvent {
	snapshot := *task
	return &TaskChangeEvent{
		ID:         uuid.New(),
		Kind:       kind,
		Task:       &snapshot,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler defines the interface for components that can handle events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskChangeEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskChangeEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskChangeEvent) error {
	return f(ctx, event)
}

// EventEmitter defines the interface for components that can emit events.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskChangeEvent) error
}
