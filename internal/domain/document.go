package domain

import "github.com/google/uuid"

// Document is the read-only view of an externally stored document that the
// pipeline needs: its owner, title and extracted text.
type Document struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
}
