// Package shared contains the error kinds, events, state machine helper and
// storage gateway contract used by every mentorship domain package.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Every DomainError carries one of these as its Kind so
// callers can classify failures with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
)

// Finer-grained sentinels. Each one classifies under a base kind.
var (
	ErrInvalidInput    = fmt.Errorf("invalid input: %w", ErrValidation)
	ErrValueOutOfRange = fmt.Errorf("value out of range: %w", ErrValidation)

	ErrStateTransition = fmt.Errorf("invalid state transition: %w", ErrInvalidState)

	ErrAlreadyExists = fmt.Errorf("entity already exists: %w", ErrConflict)
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "mentorship", "meeting", "objective"
	Op      string // operation that failed, e.g. "Accept"
	Kind    error  // base error for errors.Is checking
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validation builds a ValidationError.
func Validation(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound builds a NotFoundError.
func NotFound(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidState builds an InvalidStateError.
func InvalidState(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrInvalidState, fmt.Sprintf(format, args...))
}

// Conflict builds a ConflictError.
func Conflict(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrConflict, fmt.Sprintf(format, args...))
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidState checks if the error is an invalid-state error.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// ErrorKind is the coarse classification a caller-facing layer maps to a
// response.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindConflict     ErrorKind = "conflict"
	KindInternal     ErrorKind = "internal"
)

// KindOf classifies err. Nil errors and unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case IsValidation(err):
		return KindValidation
	case IsNotFound(err):
		return KindNotFound
	case IsInvalidState(err):
		return KindInvalidState
	case IsConflict(err):
		return KindConflict
	default:
		return KindInternal
	}
}
