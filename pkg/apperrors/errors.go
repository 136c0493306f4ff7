// Package apperrors defines the error taxonomy shared across the
// connection lifecycle pipeline. Every error that can escape the
// Add/Test entry points is one of these, so handlers never have to
// string-match on wrapped engine messages.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyInFlight  = errors.New("operation already in flight")
	ErrVaultKeyMismatch = errors.New("secret was encrypted with a different key")
)

// ValidationError reports a missing or malformed config field. It is
// raised before any engine or network call and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a config field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateAttachError indicates the engine reported the target as
// already attached. The drivers reclassify this as success; it only
// escapes when duplicate reconciliation itself fails.
type DuplicateAttachError struct {
	Alias string
	Cause error
}

func (e *DuplicateAttachError) Error() string {
	return fmt.Sprintf("source %q is already attached: %v", e.Alias, e.Cause)
}

func (e *DuplicateAttachError) Unwrap() error { return e.Cause }

// MaxAttemptsError is returned when the retry executor exhausts its
// budget. Attempts lets the UI say "N attempts failed" instead of a
// generic message.
type MaxAttemptsError struct {
	Attempts int
	LastErr  error
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *MaxAttemptsError) Unwrap() error { return e.LastErr }

// VerificationTimeoutError means the attach call succeeded but the
// engine catalog never confirmed the entry within budget. This is
// "maybe attached, unconfirmed", not "definitely not attached", and is
// surfaced distinctly so the caller knows cleanup was attempted.
type VerificationTimeoutError struct {
	Alias    string
	Attempts int
}

func (e *VerificationTimeoutError) Error() string {
	return fmt.Sprintf("attach of %q was not confirmed by the catalog after %d checks", e.Alias, e.Attempts)
}

// CredentialsRequiredError is an auth-shaped attach failure (401/403
// class). It routes the state machine to credentials-required instead
// of error so the UI offers a reconnect-with-credentials flow rather
// than a blind retry.
type CredentialsRequiredError struct {
	Kind  string
	Cause error
}

func (e *CredentialsRequiredError) Error() string {
	return fmt.Sprintf("%s source requires credentials: %v", e.Kind, e.Cause)
}

func (e *CredentialsRequiredError) Unwrap() error { return e.Cause }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCredentialsRequired reports whether err is auth-shaped.
func IsCredentialsRequired(err error) bool {
	var ce *CredentialsRequiredError
	return errors.As(err, &ce)
}
