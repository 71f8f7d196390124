// Package shared contains common domain types, errors, events and value objects
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "match", "guess", "leaderboard"
	Op      string // Operation that failed, e.g. "Submit", "RecordResult"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
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

// Is implements errors.Is() matching against both the kind and the cause.
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

// User domain errors
var (
	ErrUserNotFound  = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrInvalidUserID = NewDomainError("user", "Validate", ErrInvalidID, "invalid user ID")
)

// Match domain errors
var (
	ErrMatchNotFound    = NewDomainError("match", "Find", ErrNotFound, "match not found")
	ErrInvalidMatchID   = NewDomainError("match", "Validate", ErrInvalidID, "invalid match ID")
	ErrMissingDeadline  = NewDomainError("match", "Validate", ErrEmptyValue, "match has no deadline")
	ErrMissingTeams     = NewDomainError("match", "Validate", ErrEmptyValue, "both team names are required")
	ErrInvalidWinner    = NewDomainError("match", "RecordResult", ErrInvalidInput, "winner does not match either team or draw")
	ErrNegativeGoals    = NewDomainError("match", "RecordResult", ErrNegativeValue, "goals cannot be negative")
	ErrInvalidQualifier = NewDomainError("match", "RecordResult", ErrInvalidInput, "qualifier must be one of the teams")
	ErrEmptyPatch       = NewDomainError("match", "Update", ErrInvalidInput, "no field to update")
	ErrSameTeams        = NewDomainError("match", "Validate", ErrInvalidInput, "a team cannot play itself")
	ErrTeamsLocked      = NewDomainError("match", "Update", ErrInvalidState, "teams cannot change once the match has votes")
	ErrDrawDeclared     = NewDomainError("match", "Update", ErrInvalidState, "draw was already declared as the result")
)

// Guess domain errors
var (
	ErrMatchClosed    = NewDomainError("guess", "Submit", ErrExpired, "match is closed for voting")
	ErrDrawNotAllowed = NewDomainError("guess", "Submit", ErrInvalidInput, "draw is not allowed for this match")
	ErrInvalidPick    = NewDomainError("guess", "Submit", ErrInvalidInput, "pick does not resolve to a side")
	ErrGuessNotFound  = NewDomainError("guess", "Find", ErrNotFound, "guess not found")
)

// Leaderboard domain errors
var (
	ErrSnapshotNotFound = NewDomainError("leaderboard", "FindSnapshot", ErrNotFound, "snapshot not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error means the entity is in a state that forbids the operation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
