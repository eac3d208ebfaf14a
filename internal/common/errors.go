// Package common defines shared constants and sentinel errors used across
// the roomchat server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Operation errors surfaced to the boundary layer.
	ErrValidation = errors.New("validation failed")
	ErrPermission = errors.New("permission denied")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
