package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/api/shared"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/identity"
)

// NotificationLister reads an owner's notifications.
type NotificationLister interface {
	List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Notification, error)
}

// NotificationHandler serves the notification inbox.
type NotificationHandler struct {
	notifications NotificationLister
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications NotificationLister, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// ListNotifications handles GET /notifications?limit=.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ownerID, err := identity.OwnerFrom(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := getQueryLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	notifications, err := h.notifications.List(r.Context(), ownerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NotificationListResponse{Notifications: notifications})
}
