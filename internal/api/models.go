package api

import (
	"github.com/phrazzld/studytools/internal/domain"
)

// GenerateToolRequest defines the payload for POST /documents/{documentID}/tools.
type GenerateToolRequest struct {
	ToolType       string `json:"tool_type"       validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=128"`
}

// TaskListResponse wraps a task listing.
type TaskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

// NotificationListResponse wraps a notification listing.
type NotificationListResponse struct {
	Notifications []*domain.Notification `json:"notifications"`
}

// StreamMessage is one frame on the task stream websocket.
type StreamMessage struct {
	// Type is "snapshot" for the initial state and "update" afterwards.
	Type string       `json:"type"`
	Task *domain.Task `json:"task"`
}

// Stream message types.
const (
	StreamSnapshot = "snapshot"
	StreamUpdate   = "update"
)
