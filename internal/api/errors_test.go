package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/studytools/internal/auth"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/service"
	"github.com/phrazzld/studytools/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	verr := validator.New().Struct(&GenerateToolRequest{})

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"auth", auth.ErrExpiredToken, http.StatusUnauthorized, "Authentication required"},
		{"task not found", service.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
		{"document not found", store.ErrDocumentNotFound, http.StatusNotFound, "Resource not found"},
		{"unknown tool", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidTool), http.StatusBadRequest, "Unsupported tool type"},
		{"missing document", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyDocumentID), http.StatusBadRequest, "Document ID is required"},
		{"generic validation", domain.ErrValidation, http.StatusBadRequest, "Invalid request"},
		{"struct validation", verr, http.StatusBadRequest, "Invalid ToolType: required field"},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, "Too many requests, try again later"},
		{"duplicate", store.ErrNotificationExists, http.StatusConflict, "An unexpected error occurred"},
		{"persistence", store.NewStoreError("task", "create", "insert", errors.New("boom")), http.StatusInternalServerError, "An unexpected error occurred"},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestGetSafeErrorMessage_Nil(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestSanitizeValidationError(t *testing.T) {
	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("plain")))

	err := validator.New().Struct(&GenerateToolRequest{ToolType: "qa", IdempotencyKey: string(make([]byte, 200))})
	assert.Equal(t, "Invalid IdempotencyKey: too long", SanitizeValidationError(err))
}
