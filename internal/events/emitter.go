package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter fans each event out to its handlers synchronously, in
// registration order. Every handler sees the event even when an earlier one
// fails.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{logger: logger.With("component", "event_emitter")}
}

// RegisterHandler adds handler for subsequent events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	n := len(e.handlers)
	e.mu.Unlock()
	e.logger.Debug("event handler registered", "handler_count", n)
}

// EmitEvent implements EventEmitter. The returned error joins every handler
// failure.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskChangeEvent) error {
	e.mu.RLock()
	handlers := e.handlers[:len(e.handlers):len(e.handlers)]
	e.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			e.logger.ErrorContext(ctx, "event handler failed",
				"handler_index", i,
				"event_id", event.ID,
				"kind", event.Kind,
				"task_id", event.Task.ID,
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
