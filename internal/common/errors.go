// Package common defines shared constants and sentinel errors used across
// the webauth layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorUserNotFound = errors.New("user not found")

	// Domain-level, recoverable errors surfaced to the HTTP layer.
	ErrorInvalidPassword   = errors.New("invalid password")
	ErrorUserAlreadyExists = errors.New("user already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
)
