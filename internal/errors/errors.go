// Package errors provides domain-specific error types for pbr-lens.
//
// This package defines structured errors with error codes, making it easier to
// handle and test different failure conditions consistently across the
// application. Per-line parse failures inside the routing core are NOT
// represented here: those are logged and skipped, never escalated.
package errors

import "fmt"

// ErrorCode represents a category of error that can occur in the application.
type ErrorCode string

const (
	// ErrCodeConfig indicates a configuration-related error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeSnapshot indicates a failure obtaining the ip(8) snapshot
	// (exec, file or netlink source).
	ErrCodeSnapshot ErrorCode = "SNAPSHOT_ERROR"

	// ErrCodeResolve indicates a DNS resolution error for a packet endpoint.
	ErrCodeResolve ErrorCode = "RESOLVE_ERROR"

	// ErrCodeValidation indicates a validation error.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewSnapshotError creates a new snapshot acquisition error.
func NewSnapshotError(message string, cause error) *Error {
	return Wrap(ErrCodeSnapshot, message, cause)
}

// NewResolveError creates a new DNS resolution error.
func NewResolveError(message string, cause error) *Error {
	return Wrap(ErrCodeResolve, message, cause)
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, cause error) *Error {
	return Wrap(ErrCodeValidation, message, cause)
}
