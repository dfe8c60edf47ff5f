package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
)

// PostgresDocumentStore reads documents written by the upload service.
type PostgresDocumentStore struct {
	db store.DBTX
}

var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

// NewPostgresDocumentStore creates a read-only document store on db.
func NewPostgresDocumentStore(db store.DBTX) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

// GetDocument implements store.DocumentStore.GetDocument.
func (s *PostgresDocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var d domain.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, content FROM documents WHERE id = $1`, id,
	).Scan(&d.ID, &d.OwnerID, &d.Title, &d.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrDocumentNotFound
	}
	if err != nil {
		return nil, persistenceError("document", "get", err)
	}
	return &d, nil
}
