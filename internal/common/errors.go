// Package common defines shared sentinel errors used across the gateway
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Conflict errors for unique user fields. The HTTP layer names the
	// colliding field from these.
	ErrorUsernameTaken = errors.New("username already taken")
	ErrorEmailTaken    = errors.New("email already registered")

	// Validation errors. Wrapped with a field-specific message, e.g.
	// fmt.Errorf("%w: password must be at least 6 characters", ErrorValidation).
	ErrorValidation = errors.New("validation error")

	// Auth errors. ErrorUnauthorized covers both unknown-email and
	// wrong-password so callers cannot enumerate accounts.
	ErrorUnauthorized = errors.New("invalid email or password")
	ErrorMissingToken = errors.New("missing token")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Configuration errors: a required secret or backend setting is absent,
	// the operation is refused entirely.
	ErrorServerConfig = errors.New("server misconfigured")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)
