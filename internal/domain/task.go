package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ToolType identifies the kind of study artifact a task generates.
type ToolType string

// Supported tool types. The set is closed.
const (
	ToolMindMap      ToolType = "mind_map"
	ToolFlashcards   ToolType = "flashcards"
	ToolPresentation ToolType = "presentation"
	ToolELI5         ToolType = "eli5"
	ToolQA           ToolType = "qa"
	ToolVideo        ToolType = "video"
)

// ToolTypes lists every supported tool type.
func ToolTypes() []ToolType {
	return []ToolType{ToolMindMap, ToolFlashcards, ToolPresentation, ToolELI5, ToolQA, ToolVideo}
}

// Valid reports whether t is one of the supported tool types.
func (t ToolType) Valid() bool {
	switch t {
	case ToolMindMap, ToolFlashcards, ToolPresentation, ToolELI5, ToolQA, ToolVideo:
		return true
	default:
		return false
	}
}

// Label returns the tool type as shown to users: underscores become spaces,
// so mind_map reads "mind map" and qa stays "qa".
func (t ToolType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// ParseToolType converts s into a ToolType, returning ErrValidation when it is
// not recognized.
func ParseToolType(s string) (ToolType, error) {
	t := ToolType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidTool, s)
	}
	return t, nil
}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition reports whether the state machine allows moving from one
// status to another: pending -> processing -> (completed | failed).
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case TaskStatusPending:
		return to == TaskStatusProcessing
	case TaskStatusProcessing:
		return to == TaskStatusCompleted || to == TaskStatusFailed
	default:
		return false
	}
}

// Artifact is a validated, typed generation result. Each tool type has
// exactly one implementation.
type Artifact interface {
	Tool() ToolType
}

// Failure describes why a task failed.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewFailure builds a Failure from err using the error taxonomy.
func NewFailure(err error) *Failure {
	return &Failure{Kind: KindOf(err), Message: err.Error()}
}

// Result is the terminal payload of a task: an artifact on completion or a
// failure descriptor. Exactly one of the fields is set.
type Result struct {
	Artifact Artifact
	Failure  *Failure
}

// CompletedResult wraps a validated artifact.
func CompletedResult(a Artifact) *Result {
	return &Result{Artifact: a}
}

// FailedResult wraps a failure descriptor.
func FailedResult(f *Failure) *Result {
	return &Result{Failure: f}
}

// MarshalJSON writes the artifact or the failure object.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	return json.Marshal(r.Artifact)
}

// Common validation errors for Task
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyDocumentID  = errors.New("task document ID cannot be empty")
	ErrEmptyOwnerID     = errors.New("task owner ID cannot be empty")
	ErrInvalidTool      = errors.New("invalid tool type")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrResultMismatch   = errors.New("task result does not match status")
	ErrArtifactMismatch = errors.New("artifact does not match task tool type")
)

// Task is a durable record of one generation request and its lifecycle.
type Task struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	ToolType   ToolType   `json:"tool_type"`
	Status     TaskStatus `json:"status"`
	Result     *Result    `json:"result"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// IdempotencyKey optionally deduplicates submissions per owner.
	IdempotencyKey string `json:"-"`
	// LeaseOwner and LeaseUntil record which worker holds the task while it
	// is processing.
	LeaseOwner string     `json:"-"`
	LeaseUntil *time.Time `json:"-"`
	Attempts   int        `json:"-"`
}

// NewTask creates a pending task with no result.
func NewTask(documentID, ownerID uuid.UUID, tool ToolType) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:         uuid.New(),
		DocumentID: documentID,
		OwnerID:    ownerID,
		ToolType:   tool,
		Status:     TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks field presence and the status/result invariant.
// Returned errors wrap ErrValidation.
func (t *Task) Validate() error {
	var err error
	switch {
	case t.ID == uuid.Nil:
		err = ErrEmptyTaskID
	case t.DocumentID == uuid.Nil:
		err = ErrEmptyDocumentID
	case t.OwnerID == uuid.Nil:
		err = ErrEmptyOwnerID
	case !t.ToolType.Valid():
		err = fmt.Errorf("%w: %q", ErrInvalidTool, t.ToolType)
	case !t.Status.Valid():
		err = fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	default:
		err = checkResult(t.ToolType, t.Status, t.Result)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Transition moves the task to the given status, attaching result.
// It enforces forward-only movement and that a result is present exactly
// when the target status is terminal.
func (t *Task) Transition(to TaskStatus, result *Result, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	if err := checkResult(t.ToolType, to, result); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	t.Status = to
	t.Result = result
	t.UpdatedAt = now.UTC()
	if to.Terminal() {
		t.LeaseOwner = ""
		t.LeaseUntil = nil
	}
	return nil
}

// LeaseExpired reports whether a processing task's lease has lapsed at now.
func (t *Task) LeaseExpired(now time.Time) bool {
	return t.Status == TaskStatusProcessing && (t.LeaseUntil == nil || !t.LeaseUntil.After(now))
}

func checkResult(tool ToolType, status TaskStatus, r *Result) error {
	switch status {
	case TaskStatusCompleted:
		if r == nil || r.Artifact == nil || r.Failure != nil {
			return fmt.Errorf("%w: completed task requires an artifact", ErrResultMismatch)
		}
		if r.Artifact.Tool() != tool {
			return fmt.Errorf("%w: got %s, want %s", ErrArtifactMismatch, r.Artifact.Tool(), tool)
		}
	case TaskStatusFailed:
		if r == nil || r.Failure == nil || r.Artifact != nil {
			return fmt.Errorf("%w: failed task requires a failure descriptor", ErrResultMismatch)
		}
	default:
		if r != nil {
			return fmt.Errorf("%w: %s task cannot carry a result", ErrResultMismatch, status)
		}
	}
	return nil
}
