// Package auth verifies bearer tokens and resolves them to an owner id.
// Identity is issued elsewhere; this package only checks HMAC-signed JWTs
// whose subject is the owner's UUID.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/phrazzld/studytools/internal/platform/logger"
)

const minSecretLength = 32

// JWTService signs and validates HS256 tokens.
type JWTService struct {
	signingKey []byte
	lifetime   time.Duration
	timeFunc   func() time.Time
	clockSkew  time.Duration
}

// NewJWTService creates a JWTService from cfg.
func NewJWTService(cfg config.AuthConfig) (*JWTService, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	lifetime := cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &JWTService{
		signingKey: []byte(cfg.JWTSecret),
		lifetime:   lifetime,
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// GenerateToken signs a token whose subject is ownerID.
func (s *JWTService) GenerateToken(ctx context.Context, ownerID uuid.UUID) (string, error) {
	if ownerID == uuid.Nil {
		return "", fmt.Errorf("%w: owner id cannot be empty", ErrInvalidToken)
	}
	now := s.timeFunc()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		ID:        uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign JWT",
			"error", err,
			"owner_id", ownerID,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature and time claims of token and returns
// the owner named by its subject.
func (s *JWTService) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	log := logger.FromContext(ctx)
	if token == "" {
		return uuid.Nil, ErrMissingToken
	}

	now := s.timeFunc()
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		log.Debug("token validation failed: token expired")
		return uuid.Nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		log.Debug("token validation failed: token not yet valid")
		return uuid.Nil, ErrTokenNotYetValid
	default:
		log.Debug("token validation failed",
			"error", err,
			"error_type", fmt.Sprintf("%T", err))
		return uuid.Nil, ErrInvalidToken
	}

	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil || ownerID == uuid.Nil {
		log.Debug("token validation failed: subject is not an owner id")
		return uuid.Nil, ErrInvalidToken
	}
	return ownerID, nil
}
