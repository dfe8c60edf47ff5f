package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/identity"
	"github.com/phrazzld/studytools/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockToolService struct {
	GenerateToolFn func(ctx context.Context, documentID uuid.UUID, toolType domain.ToolType, opts ...service.GenerateOption) (*domain.Task, error)
	GetTaskFn      func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	ListTasksFn    func(ctx context.Context, q service.TaskQuery) ([]*domain.Task, error)
}

func (m *mockToolService) GenerateTool(
	ctx context.Context,
	documentID uuid.UUID,
	toolType domain.ToolType,
	opts ...service.GenerateOption,
) (*domain.Task, error) {
	return m.GenerateToolFn(ctx, documentID, toolType, opts...)
}

func (m *mockToolService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return m.GetTaskFn(ctx, taskID)
}

func (m *mockToolService) ListTasks(ctx context.Context, q service.TaskQuery) ([]*domain.Task, error) {
	return m.ListTasksFn(ctx, q)
}

// withOwner stands in for the auth middleware. A nil owner leaves the
// request unauthenticated.
func withOwner(owner uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if owner != uuid.Nil {
				r = r.WithContext(identity.WithOwner(r.Context(), owner))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRouter(owner uuid.UUID, tools ToolService, notifications NotificationLister) chi.Router {
	r := chi.NewRouter()
	r.Use(withOwner(owner))
	th := NewToolHandler(tools, discardLogger())
	r.Post("/api/documents/{documentID}/tools", th.GenerateTool)
	r.Get("/api/tasks", th.ListTasks)
	r.Get("/api/tasks/{taskID}", th.GetTask)
	if notifications != nil {
		r.Get("/api/notifications", NewNotificationHandler(notifications, discardLogger()).ListNotifications)
	}
	return r
}
