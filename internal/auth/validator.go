package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goodbase/goodbase/internal/config"
)

// TokenStore is the part of Store the validator needs.
type TokenStore interface {
	Has(ctx context.Context, token string) (bool, error)
}

// Validator checks tokens with the method named in the current auth
// section. The section is read on every call so reloads take effect.
type Validator struct {
	settings func() config.AuthConfig
	store    TokenStore
	client   *http.Client
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithStore adds stored tokens to static validation.
func WithStore(store TokenStore) ValidatorOption {
	return func(v *Validator) {
		v.store = store
	}
}

// WithHTTPClient sets the client used for external validation.
func WithHTTPClient(client *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.client = client
	}
}

// NewValidator creates a validator reading its settings from settings.
func NewValidator(settings func() config.AuthConfig, opts ...ValidatorOption) *Validator {
	v := &Validator{
		settings: settings,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Required reports whether callers must present a token.
func (v *Validator) Required() bool {
	return v.settings().Required
}

// Validate returns nil when token is accepted.
func (v *Validator) Validate(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	cfg := v.settings()
	switch cfg.ValidationMethod {
	case config.ValidationStatic:
		return v.validateStatic(ctx, cfg, token)
	case config.ValidationJWT:
		return validateJWT(cfg.JWTSecret, token)
	case config.ValidationExternal:
		return v.validateExternal(ctx, cfg.ExternalEndpoint, token)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, cfg.ValidationMethod)
	}
}

func (v *Validator) validateStatic(ctx context.Context, cfg config.AuthConfig, token string) error {
	if cfg.DefaultToken != "" && token == cfg.DefaultToken {
		return nil
	}
	if v.store == nil {
		return ErrInvalidToken
	}
	ok, err := v.store.Has(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	return nil
}

func validateJWT(secret, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func (v *Validator) validateExternal(ctx context.Context, endpoint, token string) error {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("external validation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrInvalidToken
	}
	return nil
}
