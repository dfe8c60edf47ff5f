package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processFunc func(ctx context.Context, taskID uuid.UUID) error

func (f processFunc) Process(ctx context.Context, taskID uuid.UUID) error { return f(ctx, taskID) }

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(nil, DefaultRunnerConfig(), discardLogger())
	assert.Error(t, err)

	_, err = NewRunner(processFunc(func(context.Context, uuid.UUID) error { return nil }), DefaultRunnerConfig(), nil)
	assert.Error(t, err)
}

func TestRunner_ProcessesInvokedTasks(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID]int{}
	r, err := NewRunner(processFunc(func(_ context.Context, id uuid.UUID) error {
		mu.Lock()
		defer mu.Unlock()
		seen[id]++
		return nil
	}), RunnerConfig{WorkerCount: 3, QueueSize: 10}, discardLogger())
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		accepted, err := r.Invoke(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, accepted)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(ids)
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_ReportsProcessErrors(t *testing.T) {
	boom := errors.New("boom")
	r, err := NewRunner(processFunc(func(context.Context, uuid.UUID) error { return boom }),
		RunnerConfig{WorkerCount: 1, QueueSize: 1}, discardLogger())
	require.NoError(t, err)

	failed := make(chan error, 1)
	r.SetErrorHandler(func(_ uuid.UUID, err error) { failed <- err })
	r.Start()
	defer r.Stop()

	_, err = r.Invoke(context.Background(), uuid.New())
	require.NoError(t, err)

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("error handler not called")
	}
}

func TestRunner_TaskTimeout(t *testing.T) {
	done := make(chan error, 1)
	r, err := NewRunner(processFunc(func(ctx context.Context, _ uuid.UUID) error {
		<-ctx.Done()
		done <- ctx.Err()
		return nil
	}), RunnerConfig{WorkerCount: 1, QueueSize: 1, TaskTimeout: 10 * time.Millisecond}, discardLogger())
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	_, err = r.Invoke(context.Background(), uuid.New())
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
}

func TestRunner_StopRejectsInvocations(t *testing.T) {
	r, err := NewRunner(processFunc(func(context.Context, uuid.UUID) error { return nil }),
		DefaultRunnerConfig(), discardLogger())
	require.NoError(t, err)
	r.Start()
	r.Stop()
	r.Stop()

	_, err = r.Invoke(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrQueueClosed)
}
