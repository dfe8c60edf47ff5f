package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func taskFor(t *testing.T, owner, document uuid.UUID) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(document, owner, domain.ToolQA)
	require.NoError(t, err)
	return task
}

func receive(t *testing.T, sub *Subscription) *events.TaskChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event for task %s", event.Task.ID)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBroker_ScopesByOwnerAndDocument(t *testing.T) {
	b := NewBroker(discardLogger(), 4)
	ctx := context.Background()
	ownerA, ownerB, doc := uuid.New(), uuid.New(), uuid.New()

	subA, err := b.Subscribe(ctx, ownerA, doc)
	require.NoError(t, err)
	subB, err := b.Subscribe(ctx, ownerB, doc)
	require.NoError(t, err)
	otherDoc, err := b.Subscribe(ctx, ownerA, uuid.New())
	require.NoError(t, err)

	task := taskFor(t, ownerA, doc)
	require.NoError(t, b.HandleEvent(ctx, events.NewTaskChangeEvent(events.ChangeInsert, task)))

	got := receive(t, subA)
	assert.Equal(t, task.ID, got.Task.ID)
	assert.Equal(t, events.ChangeInsert, got.Kind)
	assertNothing(t, subB)
	assertNothing(t, otherDoc)
}

func TestBroker_FanOutToSameTopic(t *testing.T) {
	b := NewBroker(discardLogger(), 4)
	owner, doc := uuid.New(), uuid.New()
	first, err := b.Subscribe(context.Background(), owner, doc)
	require.NoError(t, err)
	second, err := b.Subscribe(context.Background(), owner, doc)
	require.NoError(t, err)

	task := taskFor(t, owner, doc)
	require.NoError(t, b.HandleEvent(context.Background(), events.NewTaskChangeEvent(events.ChangeUpdate, task)))

	assert.Equal(t, task.ID, receive(t, first).Task.ID)
	assert.Equal(t, task.ID, receive(t, second).Task.ID)
}

func TestBroker_DropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker(discardLogger(), 1)
	owner, doc := uuid.New(), uuid.New()
	sub, err := b.Subscribe(context.Background(), owner, doc)
	require.NoError(t, err)

	task := taskFor(t, owner, doc)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.HandleEvent(context.Background(), events.NewTaskChangeEvent(events.ChangeUpdate, task)))
	}

	receive(t, sub)
	assertNothing(t, sub)
}

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroker(discardLogger(), 1)
	sub, err := b.Subscribe(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, 1, b.SubscriberCount())

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Zero(t, b.SubscriberCount())
}

func TestSubscription_EndsWithContext(t *testing.T) {
	b := NewBroker(discardLogger(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Subscribe(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	cancel()

	assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(discardLogger(), 1)
	sub, err := b.Subscribe(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)

	b.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	_, err = b.Subscribe(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestBroker_SubscribeValidation(t *testing.T) {
	b := NewBroker(discardLogger(), 1)

	_, err := b.Subscribe(context.Background(), uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = b.Subscribe(context.Background(), uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
