package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

func newTestService(t *testing.T) *JWTService {
	t.Helper()
	s, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	return s
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestValidateToken_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	owner := uuid.New()

	token, err := s.GenerateToken(context.Background(), owner)
	require.NoError(t, err)

	got, err := s.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestValidateToken_Failures(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	owner := uuid.New()
	valid, err := s.GenerateToken(context.Background(), owner)
	require.NoError(t, err)

	expired := newTestService(t)
	expired.timeFunc = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expiredToken, err := expired.GenerateToken(context.Background(), owner)
	require.NoError(t, err)

	notYet, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   owner.String(),
		NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   owner.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(strings.Repeat("x", 40)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", ErrMissingToken},
		{"malformed", "not-a-token", ErrInvalidToken},
		{"tampered", valid + "x", ErrInvalidToken},
		{"expired", expiredToken, ErrExpiredToken},
		{"not yet valid", notYet, ErrTokenNotYetValid},
		{"subject not a uuid", badSubject, ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrAuth)
		})
	}
}
