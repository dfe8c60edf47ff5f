package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/studytools/internal/metrics"
)

// ReconcilerConfig tunes the stale-task sweep.
type ReconcilerConfig struct {
	// Interval between sweeps.
	Interval time.Duration

	// StalePendingAfter is how long a task may stay pending before it is
	// invoked again.
	StalePendingAfter time.Duration

	// BatchSize caps the tasks handled per sweep.
	BatchSize int
}

// Reconciler re-invokes tasks that stalled: pending tasks whose trigger was
// lost and processing tasks whose worker lease expired.
type Reconciler struct {
	store   StaleLister
	trigger Trigger
	config  ReconcilerConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(store StaleLister, trigger Trigger, config ReconcilerConfig, logger *slog.Logger) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if trigger == nil {
		return nil, errors.New("trigger cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.StalePendingAfter <= 0 {
		config.StalePendingAfter = 2 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Reconciler{
		store:   store,
		trigger: trigger,
		config:  config,
		logger:  logger.With("component", "task_reconciler"),
		now:     time.Now,
	}, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "failed to check for stale tasks", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep invokes every stale task once and returns how many were accepted.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	now := r.now().UTC()
	stale, err := r.store.ListStale(ctx, now.Add(-r.config.StalePendingAfter), now, r.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	r.logger.InfoContext(ctx, "found stale tasks", "count", len(stale))

	requeued := 0
	for _, t := range stale {
		accepted, err := r.trigger.Invoke(ctx, t.ID)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to requeue stale task",
				"task_id", t.ID,
				"status", t.Status,
				"error", err)
			continue
		}
		if accepted {
			requeued++
			metrics.TasksRequeued.WithLabelValues(string(t.Status)).Inc()
			r.logger.InfoContext(ctx, "requeued stale task",
				"task_id", t.ID,
				"status", t.Status,
				"attempts", t.Attempts)
		}
	}
	return requeued, nil
}
