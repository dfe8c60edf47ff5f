package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/studytools/internal/platform/postgres"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "ai_tool_tasks",
		ColumnName:     "tool_type",
		ConstraintName: "ai_tool_tasks_result_iff_terminal",
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique", newPgError("23505"), store.ErrDuplicate},
		{"foreign key", newPgError("23503"), store.ErrInvalidEntity},
		{"check", newPgError("23514"), store.ErrInvalidEntity},
		{"not null", newPgError("23502"), store.ErrInvalidEntity},
		{"wrapped unique", fmt.Errorf("insert: %w", newPgError("23505")), store.ErrDuplicate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, postgres.MapError(tc.err), tc.want)
		})
	}

	assert.NoError(t, postgres.MapError(nil))
	other := errors.New("connection reset")
	assert.Equal(t, other, postgres.MapError(other))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(newPgError("23505")))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503")))
	assert.False(t, postgres.IsUniqueViolation(errors.New("plain")))
	assert.False(t, postgres.IsUniqueViolation(nil))
}
