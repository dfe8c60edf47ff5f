// Package cache provides read-through caches in front of slower stores.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// DocumentStore caches documents by ID. Lookup failures are not cached, so an
// unavailable document is retried on the next read.
type DocumentStore struct {
	backend store.DocumentStore
	cache   *expirable.LRU[uuid.UUID, domain.Document]
}

var _ store.DocumentStore = &DocumentStore{}

// NewDocumentStore wraps backend with an LRU of the given size whose entries
// expire after ttl. A zero ttl keeps entries until evicted.
func NewDocumentStore(backend store.DocumentStore, size int, ttl time.Duration) *DocumentStore {
	return &DocumentStore{
		backend: backend,
		cache:   expirable.NewLRU[uuid.UUID, domain.Document](size, nil, ttl),
	}
}

// GetDocument implements [store.DocumentStore].
func (s *DocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	if doc, exists := s.cache.Get(id); exists {
		return &doc, nil
	}

	doc, err := s.backend.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Add(id, *doc)

	return doc, nil
}

// Purge drops every cached document.
func (s *DocumentStore) Purge() {
	s.cache.Purge()
}
