package taskqueue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/phrazzld/studytools/internal/domain"
)

// TypeGenerate is the asynq task type for tool generation.
const TypeGenerate = "tool:generate"

// DefaultQueue is the asynq queue generation tasks are placed on.
const DefaultQueue = "default"

type generatePayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// NewGenerateTask builds the queue entry for taskID.
func NewGenerateTask(taskID uuid.UUID) (*asynq.Task, error) {
	if taskID == uuid.Nil {
		return nil, fmt.Errorf("%w: task ID cannot be empty", domain.ErrValidation)
	}
	payload, err := json.Marshal(generatePayload{TaskID: taskID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerate, payload), nil
}

// ParseGenerateTask extracts the task ID from a queue entry.
func ParseGenerateTask(t *asynq.Task) (uuid.UUID, error) {
	var p generatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %s payload: %v", domain.ErrValidation, t.Type(), err)
	}
	if p.TaskID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s payload has no task ID", domain.ErrValidation, t.Type())
	}
	return p.TaskID, nil
}
