package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goodbase/goodbase/internal/config"
)

func staticSettings(cfg config.AuthConfig) func() config.AuthConfig {
	return func() config.AuthConfig { return cfg }
}

func TestValidatorStatic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if err := store.Add(ctx, "stored"); err != nil {
		t.Fatalf("add: %v", err)
	}

	v := NewValidator(staticSettings(config.AuthConfig{
		Required:         true,
		DefaultToken:     "dev-token",
		ValidationMethod: config.ValidationStatic,
	}), WithStore(store))

	if !v.Required() {
		t.Fatalf("expected auth to be required")
	}
	for _, token := range []string{"dev-token", "stored"} {
		if err := v.Validate(ctx, token); err != nil {
			t.Fatalf("expected %s to validate: %v", token, err)
		}
	}
	if err := v.Validate(ctx, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := v.Validate(ctx, ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestValidatorStaticEmptyDefaultTokenNeverMatches(t *testing.T) {
	t.Parallel()

	v := NewValidator(staticSettings(config.AuthConfig{ValidationMethod: config.ValidationStatic}))
	if err := v.Validate(context.Background(), "anything"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidatorJWT(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	v := NewValidator(staticSettings(config.AuthConfig{
		ValidationMethod: config.ValidationJWT,
		JWTSecret:        "secret",
	}))

	good, err := IssueJWT("secret", "cli", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Validate(ctx, good); err != nil {
		t.Fatalf("expected token to validate: %v", err)
	}

	wrong, _ := IssueJWT("other", "cli", time.Minute)
	if err := v.Validate(ctx, wrong); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	expired, _ := IssueJWT("secret", "cli", -time.Minute)
	if err := v.Validate(ctx, expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidatorExternal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	v := NewValidator(staticSettings(config.AuthConfig{
		ValidationMethod: config.ValidationExternal,
		ExternalEndpoint: srv.URL,
	}), WithHTTPClient(srv.Client()))

	ctx := context.Background()
	if err := v.Validate(ctx, "good"); err != nil {
		t.Fatalf("expected token to validate: %v", err)
	}
	if err := v.Validate(ctx, "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidatorFollowsSettings(t *testing.T) {
	t.Parallel()

	cfg := config.AuthConfig{DefaultToken: "one", ValidationMethod: config.ValidationStatic}
	v := NewValidator(func() config.AuthConfig { return cfg })

	if err := v.Validate(context.Background(), "one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.DefaultToken = "two"
	if err := v.Validate(context.Background(), "one"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected old token to be rejected after change, got %v", err)
	}

	cfg.ValidationMethod = "magic"
	if err := v.Validate(context.Background(), "two"); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}
