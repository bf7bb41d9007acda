// Package common defines shared constants and sentinel errors used across
// the contactbook server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors surfaced to the client as bad requests.
	ErrorValidation       = errors.New("validation error")
	ErrInvalidContentType = errors.New("invalid file type")

	// Auth errors (invalid, expired or malformed bearer token).
	ErrInvalidToken = errors.New("invalid token")

	// Email verification token could not be decoded or is too old.
	ErrInvalidVerificationToken = errors.New("invalid or expired token")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
