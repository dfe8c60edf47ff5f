//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/studytools/internal/artifact"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/platform/postgres"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(context.Background(), db, "up", nil))
	return db
}

func TestTaskLifecycleAgainstPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tasks := postgres.NewPostgresTaskStore(db, nil)
	notifications := postgres.NewPostgresNotificationStore(db, nil)

	task, err := domain.NewTask(uuid.New(), uuid.New(), domain.ToolFlashcards)
	require.NoError(t, err)
	task.IdempotencyKey = "it-" + task.ID.String()

	created, ok, err := tasks.Create(ctx, task)
	require.NoError(t, err)
	require.True(t, ok)

	again := *task
	again.ID = uuid.New()
	dup, ok, err := tasks.Create(ctx, &again)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, created.ID, dup.ID)

	claimed, err := tasks.Claim(ctx, task.ID, "it-worker", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusProcessing, claimed.Status)

	_, err = tasks.Claim(ctx, task.ID, "other-worker", time.Minute)
	assert.ErrorIs(t, err, store.ErrLeaseHeld)

	deck, err := artifact.Validate(domain.ToolFlashcards, `{"cards":[{"question":"Q","answer":"A"}]}`)
	require.NoError(t, err)
	done, err := tasks.Transition(ctx, task.ID, "", domain.TaskStatusCompleted, domain.CompletedResult(deck))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)

	_, err = tasks.Transition(ctx, task.ID, "", domain.TaskStatusFailed,
		domain.FailedResult(&domain.Failure{Kind: domain.KindUpstream, Message: "late"}))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	n, err := domain.NewToolCompleteNotification(done, &domain.Document{ID: task.DocumentID, Title: "Doc"})
	require.NoError(t, err)
	require.NoError(t, notifications.Create(ctx, n))

	n2 := *n
	n2.ID = uuid.New()
	assert.ErrorIs(t, notifications.Create(ctx, &n2), store.ErrNotificationExists)

	listed, err := tasks.List(ctx, store.TaskFilter{OwnerID: task.OwnerID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, deck, listed[0].Result.Artifact)
}
