package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/api/shared"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/identity"
	"github.com/phrazzld/studytools/internal/platform/logger"
	"github.com/phrazzld/studytools/internal/service"
)

// ToolService is the submitter surface the handlers depend on.
type ToolService interface {
	GenerateTool(
		ctx context.Context,
		documentID uuid.UUID,
		toolType domain.ToolType,
		opts ...service.GenerateOption,
	) (*domain.Task, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	ListTasks(ctx context.Context, q service.TaskQuery) ([]*domain.Task, error)
}

// ToolHandler handles tool generation and task read requests.
type ToolHandler struct {
	tools  ToolService
	logger *slog.Logger
}

// NewToolHandler creates a new ToolHandler.
func NewToolHandler(tools ToolService, logger *slog.Logger) *ToolHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ToolHandler")
	}
	return &ToolHandler{
		tools:  tools,
		logger: logger.With(slog.String("component", "tool_handler")),
	}
}

// GenerateTool handles POST /documents/{documentID}/tools.
// It records a pending task and answers 202 without waiting for generation.
func (h *ToolHandler) GenerateTool(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, documentID, ok := handleOwnerAndPathUUID(w, r, "documentID", log)
	if !ok {
		return
	}

	var req GenerateToolRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	toolType, err := domain.ParseToolType(req.ToolType)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var opts []service.GenerateOption
	if req.IdempotencyKey != "" {
		opts = append(opts, service.WithIdempotencyKey(req.IdempotencyKey))
	}

	task, err := h.tools.GenerateTool(r.Context(), documentID, toolType, opts...)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit tool request")
		return
	}

	log.Debug("tool request accepted",
		slog.String("task_id", task.ID.String()),
		slog.String("tool_type", string(toolType)))
	w.Header().Set("Location", "/api/tasks/"+task.ID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, task)
}

// GetTask handles GET /tasks/{taskID}.
func (h *ToolHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, taskID, ok := handleOwnerAndPathUUID(w, r, "taskID", log)
	if !ok {
		return
	}

	task, err := h.tools.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// ListTasks handles GET /tasks?document_id=&tool_type=.
func (h *ToolHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.OwnerFrom(r.Context()); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	documentID, err := getQueryUUID(r, "document_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	toolType, err := getQueryToolType(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tools.ListTasks(r.Context(), service.TaskQuery{
		DocumentID: documentID,
		ToolType:   toolType,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks})
}
