package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig sizes a Runner.
type RunnerConfig struct {
	// WorkerCount is the number of concurrent processing goroutines.
	WorkerCount int

	// QueueSize is the maximum number of queued tasks.
	QueueSize int

	// TaskTimeout bounds one Process call. Zero means no bound.
	TaskTimeout time.Duration
}

// DefaultRunnerConfig returns a configuration suitable for local runs.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Runner is an in-process Trigger backed by a bounded queue and a fixed
// pool of goroutines.
type Runner struct {
	queue      *TaskQueue
	processor  Processor
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(taskID uuid.UUID, err error)
}

var _ Trigger = (*Runner)(nil)

// NewRunner creates a Runner. Call Start before invoking tasks.
func NewRunner(processor Processor, config RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if processor == nil {
		return nil, errors.New("processor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}

	logger = logger.With("component", "task_runner")
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		queue:      NewTaskQueue(config.QueueSize, logger),
		processor:  processor,
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		errHandler: func(taskID uuid.UUID, err error) {
			logger.Error("task execution failed",
				"task_id", taskID,
				"error", err)
		},
	}, nil
}

// SetErrorHandler replaces the callback run when Process returns an error.
func (r *Runner) SetErrorHandler(handler func(taskID uuid.UUID, err error)) {
	r.errHandler = handler
}

// Invoke implements Trigger.
func (r *Runner) Invoke(ctx context.Context, taskID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	accepted, err := r.queue.Enqueue(taskID)
	if err != nil {
		return false, fmt.Errorf("invoke task %s: %w", taskID, err)
	}
	return accepted, nil
}

// Start launches the worker goroutines.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		for i := 0; i < r.config.WorkerCount; i++ {
			r.wg.Add(1)
			go r.worker(i)
		}
		r.logger.Info("task runner started", "worker_count", r.config.WorkerCount)
	})
}

// Stop rejects new invocations, cancels in-flight work and waits for the
// workers to exit.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.queue.Close()
		r.cancelFunc()
		r.wg.Wait()
		r.logger.Info("task runner stopped", "abandoned", r.queue.Len())
	})
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_index", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_index", id)
			return

		case taskID, ok := <-r.queue.GetChannel():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_index", id)
				return
			}

			r.processTask(taskID, id)
		}
	}
}

func (r *Runner) processTask(taskID uuid.UUID, workerIndex int) {
	defer r.queue.Done(taskID)

	ctx := r.ctx
	if r.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.TaskTimeout)
		defer cancel()
	}

	r.logger.Debug("processing task", "task_id", taskID, "worker_index", workerIndex)
	if err := r.processor.Process(ctx, taskID); err != nil {
		r.errHandler(taskID, err)
	}
}
