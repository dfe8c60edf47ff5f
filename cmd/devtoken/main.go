// Package main mints a bearer token for local testing of the API server.
//
//	STUDYTOOLS_AUTH_JWT_SECRET=... go run ./cmd/devtoken -owner <uuid>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/auth"
	"github.com/phrazzld/studytools/internal/config"
)

func main() {
	owner := flag.String("owner", "", "Owner UUID to embed as the token subject (random when empty)")
	lifetime := flag.Duration("lifetime", time.Hour, "Token lifetime")
	flag.Parse()

	token, ownerID, err := mint(context.Background(), os.Getenv(config.EnvPrefix+"_AUTH_JWT_SECRET"), *owner, *lifetime)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "owner: %s\n", ownerID)
	fmt.Println(token)
}

func mint(ctx context.Context, secret, owner string, lifetime time.Duration) (string, uuid.UUID, error) {
	ownerID := uuid.New()
	if owner != "" {
		parsed, err := uuid.Parse(owner)
		if err != nil {
			return "", uuid.Nil, fmt.Errorf("invalid owner %q: %w", owner, err)
		}
		ownerID = parsed
	}

	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret, TokenLifetime: lifetime})
	if err != nil {
		return "", uuid.Nil, err
	}
	token, err := svc.GenerateToken(ctx, ownerID)
	if err != nil {
		return "", uuid.Nil, err
	}
	return token, ownerID, nil
}
