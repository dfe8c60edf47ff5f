package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskColumnNames = []string{
	"id", "document_id", "owner_id", "tool_type", "status", "result",
	"idempotency_key", "lease_owner", "lease_until", "attempts", "created_at", "updated_at",
}

func newMockTaskStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewPostgresTaskStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s, mock, now
}

func taskRow(task *domain.Task, result []byte) *sqlmock.Rows {
	var key any
	if task.IdempotencyKey != "" {
		key = task.IdempotencyKey
	}
	var leaseUntil any
	if task.LeaseUntil != nil {
		leaseUntil = *task.LeaseUntil
	}
	return sqlmock.NewRows(taskColumnNames).AddRow(
		task.ID.String(), task.DocumentID.String(), task.OwnerID.String(),
		string(task.ToolType), string(task.Status), result,
		key, task.LeaseOwner, leaseUntil, task.Attempts, task.CreatedAt, task.UpdatedAt,
	)
}

func newPendingTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(uuid.New(), uuid.New(), domain.ToolFlashcards)
	require.NoError(t, err)
	return task
}

func TestPostgresTaskStoreCreate(t *testing.T) {
	t.Parallel()

	t.Run("inserts pending task", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)
		task := newPendingTask(t)

		mock.ExpectQuery("INSERT INTO ai_tool_tasks").
			WithArgs(task.ID, task.DocumentID, task.OwnerID, task.ToolType, task.Status, nil,
				task.CreatedAt, task.UpdatedAt).
			WillReturnRows(taskRow(task, nil))

		got, created, err := s.Create(context.Background(), task)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
		assert.Nil(t, got.Result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("idempotency key returns existing task", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)
		existing := newPendingTask(t)
		existing.IdempotencyKey = "req-1"

		dup := newPendingTask(t)
		dup.OwnerID = existing.OwnerID
		dup.IdempotencyKey = "req-1"

		mock.ExpectQuery("INSERT INTO ai_tool_tasks").
			WillReturnRows(sqlmock.NewRows(taskColumnNames))
		mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE owner_id = \\$1 AND idempotency_key = \\$2").
			WithArgs(existing.OwnerID, "req-1").
			WillReturnRows(taskRow(existing, nil))

		got, created, err := s.Create(context.Background(), dup)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-pending task", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newMockTaskStore(t)
		task := newPendingTask(t)
		task.Status = domain.TaskStatusProcessing

		_, _, err := s.Create(context.Background(), task)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("database failure is a persistence error", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)
		mock.ExpectQuery("INSERT INTO ai_tool_tasks").WillReturnError(errors.New("connection reset"))

		_, _, err := s.Create(context.Background(), newPendingTask(t))
		assert.ErrorIs(t, err, domain.ErrPersistence)
	})
}

func TestPostgresTaskStoreGetByID(t *testing.T) {
	t.Parallel()
	s, mock, _ := newMockTaskStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestPostgresTaskStoreGetByIdempotencyKey(t *testing.T) {
	t.Parallel()
	s, mock, _ := newMockTaskStore(t)
	existing := newPendingTask(t)
	existing.IdempotencyKey = "req-7"

	mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE owner_id = \\$1 AND idempotency_key = \\$2").
		WithArgs(existing.OwnerID, "req-7").
		WillReturnRows(taskRow(existing, nil))
	mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE owner_id = \\$1 AND idempotency_key = \\$2").
		WithArgs(existing.OwnerID, "req-8").
		WillReturnError(sql.ErrNoRows)

	got, err := s.GetByIdempotencyKey(context.Background(), existing.OwnerID, "req-7")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)

	_, err = s.GetByIdempotencyKey(context.Background(), existing.OwnerID, "req-8")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStoreTransition(t *testing.T) {
	t.Parallel()

	t.Run("processing to failed", func(t *testing.T) {
		t.Parallel()
		s, mock, now := newMockTaskStore(t)
		task := newPendingTask(t)
		task.Status = domain.TaskStatusProcessing
		task.LeaseOwner = "worker-1"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE id = \\$1 FOR UPDATE").
			WithArgs(task.ID).
			WillReturnRows(taskRow(task, nil))
		mock.ExpectExec("UPDATE ai_tool_tasks").
			WithArgs(task.ID, domain.TaskStatusFailed,
				[]byte(`{"kind":"UpstreamError","message":"timeout"}`), "", nil, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		failure := domain.FailedResult(&domain.Failure{Kind: domain.KindUpstream, Message: "timeout"})
		got, err := s.Transition(context.Background(), task.ID, "worker-1", domain.TaskStatusFailed, failure)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, got.Status)
		assert.Equal(t, domain.KindUpstream, got.Result.Failure.Kind)
		assert.Empty(t, got.LeaseOwner)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal task rejects transition and rolls back", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)
		task := newPendingTask(t)
		task.Status = domain.TaskStatusFailed

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WillReturnRows(taskRow(task, []byte(`{"kind":"ParseError","message":"bad"}`)))
		mock.ExpectRollback()

		_, err := s.Transition(context.Background(), task.ID, "", domain.TaskStatusProcessing, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lease owned by another worker rolls back", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)
		task := newPendingTask(t)
		task.Status = domain.TaskStatusProcessing
		task.LeaseOwner = "worker-1"

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(task.ID).
			WillReturnRows(taskRow(task, nil))
		mock.ExpectRollback()

		failure := domain.FailedResult(&domain.Failure{Kind: domain.KindUpstream, Message: "timeout"})
		_, err := s.Transition(context.Background(), task.ID, "worker-2", domain.TaskStatusFailed, failure)
		assert.ErrorIs(t, err, store.ErrLeaseHeld)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := s.Transition(context.Background(), uuid.New(), "", domain.TaskStatusProcessing, nil)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStoreClaim(t *testing.T) {
	t.Parallel()

	t.Run("claims pending task", func(t *testing.T) {
		t.Parallel()
		s, mock, now := newMockTaskStore(t)
		task := newPendingTask(t)
		until := now.Add(time.Minute)
		claimed := *task
		claimed.Status = domain.TaskStatusProcessing
		claimed.LeaseOwner = "worker-1"
		claimed.LeaseUntil = &until
		claimed.Attempts = 1

		mock.ExpectQuery("UPDATE ai_tool_tasks").
			WithArgs(task.ID, "worker-1", until, now).
			WillReturnRows(taskRow(&claimed, nil))

		got, err := s.Claim(context.Background(), task.ID, "worker-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusProcessing, got.Status)
		assert.Equal(t, "worker-1", got.LeaseOwner)
		require.NotNil(t, got.LeaseUntil)
		assert.True(t, until.Equal(*got.LeaseUntil))
	})

	t.Run("live lease held elsewhere", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)
		task := newPendingTask(t)
		task.Status = domain.TaskStatusProcessing
		task.LeaseOwner = "worker-2"

		mock.ExpectQuery("UPDATE ai_tool_tasks").WillReturnRows(sqlmock.NewRows(taskColumnNames))
		mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE id = \\$1").
			WillReturnRows(taskRow(task, nil))

		_, err := s.Claim(context.Background(), task.ID, "worker-1", time.Minute)
		assert.ErrorIs(t, err, store.ErrLeaseHeld)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		s, mock, _ := newMockTaskStore(t)

		mock.ExpectQuery("UPDATE ai_tool_tasks").WillReturnRows(sqlmock.NewRows(taskColumnNames))
		mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE id = \\$1").WillReturnError(sql.ErrNoRows)

		_, err := s.Claim(context.Background(), uuid.New(), "worker-1", time.Minute)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStoreList(t *testing.T) {
	t.Parallel()
	s, mock, _ := newMockTaskStore(t)

	owner := uuid.New()
	docID := uuid.New()
	tool := domain.ToolMindMap

	newer := newPendingTask(t)
	newer.OwnerID, newer.DocumentID, newer.ToolType = owner, docID, tool
	completed := newPendingTask(t)
	completed.OwnerID, completed.DocumentID, completed.ToolType = owner, docID, tool
	completed.Status = domain.TaskStatusCompleted

	mock.ExpectQuery("SELECT (.+) FROM ai_tool_tasks WHERE owner_id = \\$1").
		WithArgs(owner, docID, "mind_map").
		WillReturnRows(taskRow(newer, nil).AddRow(
			completed.ID.String(), docID.String(), owner.String(), "mind_map", "completed",
			[]byte(`{"nodes":[{"id":"1","label":"Root"}],"edges":[]}`),
			nil, "", nil, 1, completed.CreatedAt, completed.UpdatedAt,
		))

	tasks, err := s.List(context.Background(), store.TaskFilter{OwnerID: owner, DocumentID: &docID, ToolType: &tool})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Nil(t, tasks[0].Result)
	require.NotNil(t, tasks[1].Result)
	assert.Equal(t, domain.ToolMindMap, tasks[1].Result.Artifact.Tool())
	assert.NoError(t, mock.ExpectationsWereMet())
}
