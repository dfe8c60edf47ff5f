package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/artifact"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/notification"
	"github.com/phrazzld/studytools/internal/platform/memory"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	store.NotificationStore
	err error
}

func (s failingStore) Create(context.Context, *domain.Notification) error { return s.err }

func completedTask(t *testing.T, tool domain.ToolType, a domain.Artifact) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(uuid.New(), uuid.New(), tool)
	require.NoError(t, err)
	require.NoError(t, task.Transition(domain.TaskStatusProcessing, nil, time.Now()))
	require.NoError(t, task.Transition(domain.TaskStatusCompleted, domain.CompletedResult(a), time.Now()))
	return task
}

func newEmitter(t *testing.T, s store.NotificationStore) *notification.Emitter {
	t.Helper()
	e, err := notification.NewEmitter(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return e
}

func TestNewEmitter(t *testing.T) {
	_, err := notification.NewEmitter(nil, slog.Default())
	assert.Error(t, err)

	_, err = notification.NewEmitter(memory.NewNotificationStore(), nil)
	assert.Error(t, err)
}

func TestEmit(t *testing.T) {
	deck := artifact.Flashcards{Cards: []artifact.Flashcard{{ID: "card-1", Question: "Q", Answer: "A"}}}

	t.Run("creates notice from tool label and document title", func(t *testing.T) {
		s := memory.NewNotificationStore()
		e := newEmitter(t, s)
		task := completedTask(t, domain.ToolFlashcards, deck)
		doc := &domain.Document{ID: task.DocumentID, OwnerID: task.OwnerID, Title: "Biology 101"}

		n, err := e.Emit(context.Background(), task, doc)

		require.NoError(t, err)
		assert.Equal(t, task.OwnerID, n.OwnerID)
		assert.Equal(t, task.ID, n.RelatedTaskID)
		assert.Equal(t, domain.NotificationTypeToolComplete, n.Type)
		assert.Equal(t, "flashcards is ready", n.Title)
		assert.Equal(t, "Your flashcards for Biology 101 has been generated.", n.Message)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("second emit returns the first record", func(t *testing.T) {
		s := memory.NewNotificationStore()
		e := newEmitter(t, s)
		task := completedTask(t, domain.ToolFlashcards, deck)
		doc := &domain.Document{ID: task.DocumentID, Title: "Doc"}

		first, err := e.Emit(context.Background(), task, doc)
		require.NoError(t, err)
		second, err := e.Emit(context.Background(), task, doc)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("rejects unfinished task", func(t *testing.T) {
		e := newEmitter(t, memory.NewNotificationStore())
		task, err := domain.NewTask(uuid.New(), uuid.New(), domain.ToolQA)
		require.NoError(t, err)

		_, err = e.Emit(context.Background(), task, &domain.Document{Title: "Doc"})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		boom := errors.New("connection reset")
		e := newEmitter(t, failingStore{err: boom})

		_, err := e.Emit(context.Background(), completedTask(t, domain.ToolFlashcards, deck), &domain.Document{Title: "Doc"})

		assert.ErrorIs(t, err, boom)
	})
}

func TestList(t *testing.T) {
	s := memory.NewNotificationStore()
	e := newEmitter(t, s)
	deck := artifact.Flashcards{Cards: []artifact.Flashcard{{ID: "card-1", Question: "Q", Answer: "A"}}}

	task := completedTask(t, domain.ToolFlashcards, deck)
	_, err := e.Emit(context.Background(), task, &domain.Document{Title: "Doc"})
	require.NoError(t, err)
	_, err = e.Emit(context.Background(), completedTask(t, domain.ToolFlashcards, deck), &domain.Document{Title: "Other"})
	require.NoError(t, err)

	list, err := e.List(context.Background(), task.OwnerID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, task.ID, list[0].RelatedTaskID)

	_, err = e.List(context.Background(), uuid.Nil, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
