package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/auth"
	"github.com/phrazzld/studytools/internal/identity"
	"github.com/stretchr/testify/assert"
)

type mockValidator struct {
	ValidateTokenFn func(ctx context.Context, token string) (uuid.UUID, error)
}

func (m *mockValidator) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	return m.ValidateTokenFn(ctx, token)
}

func TestAuthenticate(t *testing.T) {
	owner := uuid.New()
	validator := &mockValidator{ValidateTokenFn: func(_ context.Context, token string) (uuid.UUID, error) {
		switch token {
		case "good":
			return owner, nil
		case "expired":
			return uuid.Nil, auth.ErrExpiredToken
		case "broken":
			return uuid.Nil, errors.New("keystore offline")
		default:
			return uuid.Nil, auth.ErrInvalidToken
		}
	}}

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.OwnerFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := NewAuthMiddleware(validator).Authenticate(next)

	tests := []struct {
		name       string
		header     string
		query      string
		websocket  bool
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantBody: "Authorization header required"},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer expired", wantStatus: http.StatusUnauthorized, wantBody: "Token expired"},
		{name: "invalid", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantBody: "Invalid token"},
		{name: "validator failure", header: "Bearer broken", wantStatus: http.StatusInternalServerError},
		{name: "query token on websocket", query: "?access_token=good", websocket: true, wantStatus: http.StatusOK},
		{name: "query token on plain request", query: "?access_token=good", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			r := httptest.NewRequest(http.MethodGet, "/api/tasks"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.websocket {
				r.Header.Set("Connection", "Upgrade")
				r.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, owner, seen)
			} else {
				assert.Equal(t, uuid.Nil, seen)
			}
		})
	}
}
