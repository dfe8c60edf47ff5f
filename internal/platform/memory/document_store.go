package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// DocumentStore holds documents in memory. Put stands in for the external
// upload service.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]domain.Document
}

var _ store.DocumentStore = (*DocumentStore)(nil)

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[uuid.UUID]domain.Document)}
}

func (s *DocumentStore) Put(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

func (s *DocumentStore) GetDocument(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return &d, nil
}
