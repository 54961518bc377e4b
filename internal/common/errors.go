// Package common defines shared constants and sentinel errors used across
// the supportchat server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// ErrTransient marks failures of the persistence layer that are safe to
	// retry (connection loss, timeouts). It says nothing about whether the
	// operation took effect.
	ErrTransient = errors.New("storage temporarily unavailable")

	// Service-level errors.
	ErrorInternal  = errors.New("internal error")
	ErrValidation  = errors.New("validation error")
	ErrForbidden   = errors.New("forbidden")
	ErrUnconfirmed = errors.New("email not confirmed")

	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired wraps ErrInvalidToken.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
)

// ValidationError describes a missing or malformed input field.
// It matches ErrValidation via errors.Is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
