package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/studytools/internal/store"
)

const uniqueViolationCode = "23505"

// constraintClasses maps integrity-violation SQLSTATE codes onto store errors.
var constraintClasses = map[string]struct {
	sentinel error
	label    string
}{
	uniqueViolationCode: {store.ErrDuplicate, "unique violation"},
	"23503":             {store.ErrInvalidEntity, "foreign key violation"},
	"23514":             {store.ErrInvalidEntity, "check constraint violation"},
	"23502":             {store.ErrInvalidEntity, "not null violation"},
}

// MapError classifies a database error as a store error, keeping the
// original in the chain. Unrecognized errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	class, ok := constraintClasses[pgErr.Code]
	if !ok {
		return err
	}
	subject := pgErr.ConstraintName
	if subject == "" {
		subject = pgErr.ColumnName
	}
	return fmt.Errorf("%w: %s (%s): %v", class.sentinel, class.label, subject, err)
}

// IsUniqueViolation reports whether err is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// persistenceError wraps err as a store error for entity and operation
// unless it already classifies as not-found or duplicate.
func persistenceError(entity, operation string, err error) error {
	mapped := MapError(err)
	if store.IsNotFoundError(mapped) || store.IsDuplicateError(mapped) {
		return mapped
	}
	return store.NewStoreError(entity, operation, "database error", mapped)
}
