package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/studytools/internal/store"
)

// ErrTaskNotFound is returned when a task does not exist or belongs to
// another owner.
var ErrTaskNotFound = store.ErrTaskNotFound

// ServiceError wraps a failure with the operation that produced it.
type ServiceError struct {
	// Operation is the name of the operation that failed (e.g., "generate_tool").
	Operation string

	// Message is a human-readable description of what went wrong.
	Message string

	// Err is the underlying error that caused the failure.
	Err error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("tool service %s failed: %s", e.Operation, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err. Not-found errors pass through unchanged so
// callers can match them directly. A nil err yields nil.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
