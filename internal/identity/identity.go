// Package identity carries the authenticated owner through request contexts.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
)

type contextKey struct{}

// WithOwner returns a context carrying ownerID.
func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, ownerID)
}

// OwnerFrom returns the owner carried by ctx. It fails with domain.ErrAuth
// when no owner is present.
func OwnerFrom(ctx context.Context) (uuid.UUID, error) {
	ownerID, ok := ctx.Value(contextKey{}).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: no owner in request context", domain.ErrAuth)
	}
	return ownerID, nil
}
