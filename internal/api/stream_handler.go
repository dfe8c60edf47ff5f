package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/platform/logger"
	"github.com/phrazzld/studytools/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// StreamHandler pushes task changes for one document over a websocket.
type StreamHandler struct {
	tools      ToolService
	subscriber service.Subscriber
	reader     service.TaskReader
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewStreamHandler creates a StreamHandler. checkOrigin may be nil to use
// the same-origin default.
func NewStreamHandler(
	tools ToolService,
	subscriber service.Subscriber,
	reader service.TaskReader,
	checkOrigin func(r *http.Request) bool,
	logger *slog.Logger,
) *StreamHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StreamHandler")
	}
	return &StreamHandler{
		tools:      tools,
		subscriber: subscriber,
		reader:     reader,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With(slog.String("component", "stream_handler")),
	}
}

// StreamTasks handles GET /documents/{documentID}/tasks/stream.
//
// The connection first receives one "snapshot" frame per existing task, then
// an "update" frame whenever a task changes. Frames for a task never move it
// backwards through the lifecycle.
func (h *StreamHandler) StreamTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, documentID, ok := handleOwnerAndPathUUID(w, r, "documentID", log)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before listing so a change landing in between is not lost.
	observer, err := service.NewObserver(ctx, h.subscriber, h.reader, ownerID, documentID, nil, log)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open task stream")
		return
	}
	defer observer.Close()

	initial, err := h.tools.ListTasks(r.Context(), service.TaskQuery{DocumentID: &documentID})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	observer.Seed(initial)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log = log.With(slog.String("document_id", documentID.String()))
	log.Debug("task stream opened")

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, observer, log)
	log.Debug("task stream closed")
}

// readPump discards client frames and cancels the stream when the peer goes
// away or stops answering pings.
func (h *StreamHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writePump(ctx context.Context, conn *websocket.Conn, observer *service.Observer, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sent := make(map[uuid.UUID]*domain.Task)
	write := func(kind string, task *domain.Task) bool {
		if last, ok := sent[task.ID]; ok && last.Status == task.Status && last.UpdatedAt.Equal(task.UpdatedAt) {
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(StreamMessage{Type: kind, Task: task}); err != nil {
			log.Debug("task stream write failed", "error", err)
			return false
		}
		sent[task.ID] = task
		return true
	}

	for _, task := range observer.Snapshot() {
		if !write(StreamSnapshot, task) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case task, ok := <-observer.Updates():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(writeWait))
				return
			}
			if !write(StreamUpdate, task) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
