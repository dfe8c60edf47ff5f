package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/studytools/internal/api"
	apiMiddleware "github.com/phrazzld/studytools/internal/api/middleware"
	"github.com/phrazzld/studytools/internal/metrics"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	toolHandler := api.NewToolHandler(app.toolService, app.logger)
	streamHandler := api.NewStreamHandler(app.toolService, app.broker, app.tasks, nil, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notifications, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/documents/{documentID}/tools", toolHandler.GenerateTool)
		r.Get("/documents/{documentID}/tasks/stream", streamHandler.StreamTasks)

		r.Get("/tasks", toolHandler.ListTasks)
		r.Get("/tasks/{taskID}", toolHandler.GetTask)

		r.Get("/notifications", notificationHandler.ListNotifications)
	})

	r.Get("/health", app.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// health reports 200 when the database, if any, answers a ping.
func (app *application) health(w http.ResponseWriter, r *http.Request) {
	if app.stores.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.stores.DB.PingContext(ctx); err != nil {
			app.logger.Error("Health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		app.logger.Error("Failed to write health check response", "error", err)
	}
}
