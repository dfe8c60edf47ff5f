package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/identity"
)

// getPathUUID extracts a UUID from the URL path parameters.
// Missing or malformed values are validation errors.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrValidation, paramName)
	}
	return id, nil
}

// getQueryUUID parses an optional UUID query parameter. An absent parameter
// yields nil.
func getQueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has invalid format", domain.ErrValidation, name)
	}
	return &id, nil
}

// getQueryToolType parses an optional tool_type query parameter.
func getQueryToolType(r *http.Request) (*domain.ToolType, error) {
	raw := r.URL.Query().Get("tool_type")
	if raw == "" {
		return nil, nil
	}
	tool, err := domain.ParseToolType(raw)
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// getQueryLimit parses an optional positive limit query parameter.
func getQueryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrValidation)
	}
	return limit, nil
}

// handleOwnerAndPathUUID resolves the authenticated owner and a UUID path
// parameter. It writes an error response and returns ok=false when either
// is missing or invalid.
func handleOwnerAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (ownerID, pathID uuid.UUID, ok bool) {
	ownerID, err := identity.OwnerFrom(r.Context())
	if err != nil {
		log.Warn("owner not found in request context")
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, false
	}

	pathID, err = getPathUUID(r, paramName)
	if err != nil {
		log.Warn("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, pathID, true
}
