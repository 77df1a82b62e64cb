package auth

import "errors"

var (
	// ErrMissingToken is returned when a request carries no token.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned when a token does not validate.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for expired JWTs.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnsupportedMethod is returned for an unknown validation method.
	ErrUnsupportedMethod = errors.New("unsupported validation method")
)
