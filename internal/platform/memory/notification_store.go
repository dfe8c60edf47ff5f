package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// NotificationStore is a map-backed store.NotificationStore keyed by the
// related task, mirroring the unique index of the SQL schema.
type NotificationStore struct {
	mu     sync.RWMutex
	byTask map[uuid.UUID]domain.Notification
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{byTask: make(map[uuid.UUID]domain.Notification)}
}

func (s *NotificationStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTask[n.RelatedTaskID]; exists {
		return store.ErrNotificationExists
	}
	s.byTask[n.RelatedTaskID] = *n
	return nil
}

func (s *NotificationStore) GetByTaskID(_ context.Context, taskID uuid.UUID) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byTask[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (s *NotificationStore) ListByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Notification{}
	for _, n := range s.byTask {
		if n.OwnerID == ownerID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored notifications.
func (s *NotificationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byTask)
}
