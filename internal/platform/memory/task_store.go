// Package memory provides in-process implementations of the store
// interfaces for tests and single-binary local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// TaskStore is a map-backed store.TaskStore. Stored tasks are copied on the
// way in and out so callers cannot mutate shared state.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
	keys  map[string]uuid.UUID
	now   func() time.Time
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore returns an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
		keys:  make(map[string]uuid.UUID),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Used by tests.
func (s *TaskStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func idempotencyIndex(owner uuid.UUID, key string) string {
	return owner.String() + "/" + key
}

func (s *TaskStore) Create(_ context.Context, task *domain.Task) (*domain.Task, bool, error) {
	if err := task.Validate(); err != nil {
		return nil, false, err
	}
	if task.Status != domain.TaskStatusPending || task.Result != nil {
		return nil, false, fmt.Errorf("%w: new tasks must be pending without a result", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.IdempotencyKey != "" {
		if id, ok := s.keys[idempotencyIndex(task.OwnerID, task.IdempotencyKey)]; ok {
			return clone(s.tasks[id]), false, nil
		}
	}
	if _, exists := s.tasks[task.ID]; exists {
		return nil, false, fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}

	stored := clone(task)
	s.tasks[task.ID] = stored
	if task.IdempotencyKey != "" {
		s.keys[idempotencyIndex(task.OwnerID, task.IdempotencyKey)] = task.ID
	}
	return clone(stored), true, nil
}

func (s *TaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return clone(t), nil
}

func (s *TaskStore) GetByIdempotencyKey(_ context.Context, ownerID uuid.UUID, key string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keys[idempotencyIndex(ownerID, key)]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return clone(s.tasks[id]), nil
}

func (s *TaskStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Task{}
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, clone(t))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *TaskStore) Transition(
	_ context.Context,
	id uuid.UUID,
	workerID string,
	to domain.TaskStatus,
	result *domain.Result,
) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if err := store.CheckLease(t, workerID); err != nil {
		return nil, err
	}
	next := clone(t)
	if err := next.Transition(to, result, s.now()); err != nil {
		return nil, err
	}
	s.tasks[id] = next
	return clone(next), nil
}

func (s *TaskStore) Claim(_ context.Context, id uuid.UUID, workerID string, lease time.Duration) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	now := s.now()
	next := clone(t)
	switch {
	case t.Status == domain.TaskStatusPending:
		if err := next.Transition(domain.TaskStatusProcessing, nil, now); err != nil {
			return nil, err
		}
	case t.Status == domain.TaskStatusProcessing && (t.LeaseExpired(now) || t.LeaseOwner == workerID):
		next.UpdatedAt = now
	default:
		return nil, fmt.Errorf("%w: task %s is %s (lease owner %q)", store.ErrLeaseHeld, id, t.Status, t.LeaseOwner)
	}

	until := now.Add(lease)
	next.LeaseOwner = workerID
	next.LeaseUntil = &until
	next.Attempts++
	s.tasks[id] = next
	return clone(next), nil
}

func (s *TaskStore) ListStale(_ context.Context, pendingBefore, now time.Time, limit int) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Task{}
	for _, t := range s.tasks {
		stalePending := t.Status == domain.TaskStatusPending && t.CreatedAt.Before(pendingBefore)
		if stalePending || t.LeaseExpired(now) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID.String() > tasks[j].ID.String()
	})
}

// clone copies t. Results are immutable once written, so they are shared.
func clone(t *domain.Task) *domain.Task {
	c := *t
	if t.LeaseUntil != nil {
		until := *t.LeaseUntil
		c.LeaseUntil = &until
	}
	return &c
}
