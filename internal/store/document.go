package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
)

// DocumentStore is the read-only document collaborator.
// Returns ErrDocumentNotFound when the document does not exist.
type DocumentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error)
}
