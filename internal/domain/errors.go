package domain

import (
	"errors"
	"strings"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These errors are shared by the store, the session engine and the transports.
// -----------------------------------------------------------------------------

// Exercise errors
var (
	ErrExerciseNotFound    = errors.New("exercise not found")
	ErrInvalidExercise     = errors.New("invalid exercise")
	ErrExerciseUnavailable = errors.New("exercise unavailable")
)

// Session errors
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoCurrentExercise  = errors.New("no current exercise")
	ErrExerciseResolved   = errors.New("exercise already resolved, advance to continue")
	ErrExerciseUnresolved = errors.New("exercise not resolved yet")
)

// Auth errors
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTooManyAttempts   = errors.New("too many authentication attempts")
	ErrAuthNotConfigured = errors.New("admin secret not configured")
)

// General errors
var (
	ErrTransport = errors.New("transport failure")
)

// -----------------------------------------------------------------------------
// Typed errors
// -----------------------------------------------------------------------------

// ValidationError lists everything wrong with submitted exercise data
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid exercise: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidExercise
}

// TransportError wraps a failure reaching the store or the broadcast bus
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError wraps err, returning nil for a nil error
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}
