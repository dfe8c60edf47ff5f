package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrQueueClosed is returned when enqueueing to a closed queue
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("task queue is full")
)

// TaskQueue is a bounded FIFO of task IDs. An ID stays known to the queue
// from Enqueue until Done, and enqueueing it again in that window is
// reported as a duplicate.
type TaskQueue struct {
	mu       sync.Mutex
	ids      chan uuid.UUID
	inFlight map[uuid.UUID]struct{}
	closed   bool
	logger   *slog.Logger
}

// NewTaskQueue creates a queue holding at most size IDs.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size <= 0 {
		size = 1
	}
	return &TaskQueue{
		ids:      make(chan uuid.UUID, size),
		inFlight: make(map[uuid.UUID]struct{}),
		logger:   logger,
	}
}

// Enqueue adds id. It returns false without error when id is already queued
// or being processed.
func (q *TaskQueue) Enqueue(id uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrQueueClosed
	}
	if _, ok := q.inFlight[id]; ok {
		return false, nil
	}

	select {
	case q.ids <- id:
		q.inFlight[id] = struct{}{}
		q.logger.Debug("task enqueued",
			"task_id", id,
			"queue_len", len(q.ids),
			"queue_cap", cap(q.ids))
		return true, nil
	default:
		return false, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.ids))
	}
}

// Done releases id so it can be enqueued again.
func (q *TaskQueue) Done(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, id)
}

// Close stops accepting IDs. Queued IDs can still be drained.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ids)
		q.logger.Info("task queue closed")
	}
}

// GetChannel returns the channel workers receive IDs from.
func (q *TaskQueue) GetChannel() <-chan uuid.UUID {
	return q.ids
}

// Len returns the number of queued IDs.
func (q *TaskQueue) Len() int {
	return len(q.ids)
}
