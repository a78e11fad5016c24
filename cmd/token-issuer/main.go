// Package main mints a signed access token for a user so the sync endpoints
// can be exercised without an identity provider.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/phrazzld/qbank-api/internal/auth"
	"github.com/phrazzld/qbank-api/internal/config"
)

const secretEnv = config.EnvPrefix + "_AUTH_JWT_SECRET"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error loading .env file: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:], os.Getenv(secretEnv), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "token-issuer: %v\n", err)
		os.Exit(2)
	}
}

// run parses args, signs a token and writes it to out. envSecret is used
// when -secret is not given.
func run(ctx context.Context, args []string, envSecret string, out io.Writer) error {
	fs := flag.NewFlagSet("token-issuer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userFlag := fs.String("user", "", "user ID to embed in the token (random when empty)")
	secret := fs.String("secret", envSecret, "HMAC signing secret (defaults to $"+secretEnv+")")
	lifetime := fs.Int("lifetime", 60, "token lifetime in minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID := uuid.New()
	if *userFlag != "" {
		parsed, err := uuid.Parse(*userFlag)
		if err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
		userID = parsed
	}

	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            *secret,
		TokenLifetimeMinutes: *lifetime,
	})
	if err != nil {
		return err
	}

	token, err := svc.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	_, err = fmt.Fprintf(out, "user_id=%s\ntoken=%s\n", userID, token)
	return err
}
