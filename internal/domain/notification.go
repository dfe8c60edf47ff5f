package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// NotificationTypeToolComplete marks a notice about a finished generation task.
	NotificationTypeToolComplete = "ai_tool_complete"

	// RelatedEntityTask is the related entity type recorded for task notices.
	RelatedEntityTask = "ai_tool_tasks"
)

// Notification is a user-visible notice. It is created once and never mutated.
type Notification struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           uuid.UUID `json:"owner_id"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	RelatedTaskID     uuid.UUID `json:"related_task_id"`
	RelatedEntityType string    `json:"related_entity_type"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewToolCompleteNotification builds the completion notice for task on doc.
func NewToolCompleteNotification(task *Task, doc *Document) (*Notification, error) {
	if task == nil || doc == nil {
		return nil, fmt.Errorf("%w: task and document are required", ErrValidation)
	}
	if task.Status != TaskStatusCompleted {
		return nil, fmt.Errorf("%w: task %s is %s, not completed", ErrValidation, task.ID, task.Status)
	}
	label := task.ToolType.Label()
	return &Notification{
		ID:                uuid.New(),
		OwnerID:           task.OwnerID,
		Type:              NotificationTypeToolComplete,
		Title:             label + " is ready",
		Message:           fmt.Sprintf("Your %s for %s has been generated.", label, doc.Title),
		RelatedTaskID:     task.ID,
		RelatedEntityType: RelatedEntityTask,
		CreatedAt:         time.Now().UTC(),
	}, nil
}
