package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/artifact"
	"github.com/phrazzld/studytools/internal/domain"
)

type wireTask struct {
	ID         uuid.UUID         `json:"id"`
	DocumentID uuid.UUID         `json:"document_id"`
	OwnerID    uuid.UUID         `json:"owner_id"`
	ToolType   domain.ToolType   `json:"tool_type"`
	Status     domain.TaskStatus `json:"status"`
	Result     json.RawMessage   `json:"result"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type wireEvent struct {
	ID         uuid.UUID  `json:"id"`
	Kind       ChangeKind `json:"kind"`
	Task       wireTask   `json:"task"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Encode serializes an event for transport between processes.
func Encode(event *TaskChangeEvent) ([]byte, error) {
	if event == nil || event.Task == nil {
		return nil, fmt.Errorf("encode event: missing task")
	}
	return json.Marshal(event)
}

// Decode parses an event produced by Encode, rebuilding the typed result.
func Decode(data []byte) (*TaskChangeEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if w.Kind != ChangeInsert && w.Kind != ChangeUpdate {
		return nil, fmt.Errorf("decode event: unknown kind %q", w.Kind)
	}

	result, err := artifact.DecodeResult(w.Task.ToolType, w.Task.Status, w.Task.Result)
	if err != nil {
		return nil, fmt.Errorf("decode event result: %w", err)
	}

	task := &domain.Task{
		ID:         w.Task.ID,
		DocumentID: w.Task.DocumentID,
		OwnerID:    w.Task.OwnerID,
		ToolType:   w.Task.ToolType,
		Status:     w.Task.Status,
		Result:     result,
		CreatedAt:  w.Task.CreatedAt,
		UpdatedAt:  w.Task.UpdatedAt,
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("decode event task: %w", err)
	}

	return &TaskChangeEvent{
		ID:         w.ID,
		Kind:       w.Kind,
		Task:       task,
		OccurredAt: w.OccurredAt,
	}, nil
}
