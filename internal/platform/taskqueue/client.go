package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ClientConfig controls how entries are enqueued.
type ClientConfig struct {
	Queue string
	// MaxRetry is the number of redeliveries after a failed attempt.
	MaxRetry int
	// Timeout bounds one processing attempt.
	Timeout time.Duration
	// Retention keeps finished entries, and their IDs, around for inspection.
	Retention time.Duration
}

// Client enqueues generation work.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       ClientConfig
	logger    *slog.Logger
}

// NewClient connects a client to Redis.
func NewClient(opt asynq.RedisConnOpt, cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "taskqueue_client")),
	}
}

// Invoke enqueues taskID. It reports accepted=false when an entry for the
// task is already waiting or running. An entry that already finished is
// replaced, so a task left unfinished can be invoked again.
func (c *Client) Invoke(ctx context.Context, taskID uuid.UUID) (bool, error) {
	accepted, err := c.enqueue(ctx, taskID)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return accepted, err
	}

	info, err := c.inspector.GetTaskInfo(c.cfg.Queue, taskID.String())
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			return c.enqueue(ctx, taskID)
		}
		return false, fmt.Errorf("inspect queued task %s: %w", taskID, err)
	}
	switch info.State {
	case asynq.TaskStateCompleted, asynq.TaskStateArchived:
		if err := c.inspector.DeleteTask(c.cfg.Queue, taskID.String()); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return false, fmt.Errorf("delete finished entry for task %s: %w", taskID, err)
		}
		c.logger.InfoContext(ctx, "replacing finished queue entry",
			slog.String("task_id", taskID.String()),
			slog.String("state", info.State.String()))
		return c.enqueue(ctx, taskID)
	default:
		c.logger.DebugContext(ctx, "task already queued",
			slog.String("task_id", taskID.String()),
			slog.String("state", info.State.String()))
		return false, nil
	}
}

func (c *Client) enqueue(ctx context.Context, taskID uuid.UUID) (bool, error) {
	t, err := NewGenerateTask(taskID)
	if err != nil {
		return false, err
	}

	opts := []asynq.Option{
		asynq.TaskID(taskID.String()),
		asynq.Queue(c.cfg.Queue),
		asynq.MaxRetry(c.cfg.MaxRetry),
	}
	if c.cfg.Timeout > 0 {
		opts = append(opts, asynq.Timeout(c.cfg.Timeout))
	}
	if c.cfg.Retention > 0 {
		opts = append(opts, asynq.Retention(c.cfg.Retention))
	}

	info, err := c.client.EnqueueContext(ctx, t, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return false, asynq.ErrTaskIDConflict
		}
		return false, fmt.Errorf("enqueue task %s: %w", taskID, err)
	}

	c.logger.InfoContext(ctx, "task enqueued",
		slog.String("task_id", taskID.String()),
		slog.String("queue", info.Queue))
	return true, nil
}

// Close releases the Redis connections.
func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}
