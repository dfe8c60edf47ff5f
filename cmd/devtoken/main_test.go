package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/auth"
	"github.com/phrazzld/studytools/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "a-development-secret-of-sufficient-length"

func TestMint(t *testing.T) {
	owner := uuid.New()

	token, got, err := mint(context.Background(), secret, owner.String(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret, TokenLifetime: time.Minute})
	require.NoError(t, err)
	subject, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, owner, subject)
}

func TestMint_RandomOwner(t *testing.T) {
	_, got, err := mint(context.Background(), secret, "", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got)
}

func TestMint_Errors(t *testing.T) {
	_, _, err := mint(context.Background(), secret, "not-a-uuid", time.Minute)
	assert.Error(t, err)

	_, _, err = mint(context.Background(), "short", "", time.Minute)
	assert.Error(t, err)
}
