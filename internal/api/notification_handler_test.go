package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotificationLister struct {
	ListFn func(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Notification, error)
}

func (m *mockNotificationLister) List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Notification, error) {
	return m.ListFn(ctx, ownerID, limit)
}

func TestListNotificationsHandler(t *testing.T) {
	owner := uuid.New()
	taskID := uuid.New()

	var gotOwner uuid.UUID
	var gotLimit int
	lister := &mockNotificationLister{ListFn: func(_ context.Context, o uuid.UUID, limit int) ([]*domain.Notification, error) {
		gotOwner, gotLimit = o, limit
		if limit == 99 {
			return nil, errors.New("database is gone")
		}
		return []*domain.Notification{{
			ID:            uuid.New(),
			OwnerID:       o,
			Type:          domain.NotificationTypeToolComplete,
			Title:         "flashcards is ready",
			Message:       "Your flashcards for Biology has been generated.",
			RelatedTaskID: taskID,
			CreatedAt:     time.Now().UTC(),
		}}, nil
	}}

	t.Run("lists owner notifications", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(owner, &mockToolService{}, lister).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications?limit=5", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, owner, gotOwner)
		assert.Equal(t, 5, gotLimit)

		var body NotificationListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Notifications, 1)
		assert.Equal(t, taskID, body.Notifications[0].RelatedTaskID)
		assert.Equal(t, "flashcards is ready", body.Notifications[0].Title)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(owner, &mockToolService{}, lister).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications?limit=-3", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(owner, &mockToolService{}, lister).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications?limit=99", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to list notifications")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(uuid.Nil, &mockToolService{}, lister).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
