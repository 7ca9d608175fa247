package types

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable identifier stored on a trip in the error state.
type ErrorCode string

const (
	CodeInvalidPreferences   ErrorCode = "invalid_preferences"
	CodeProposerFailure      ErrorCode = "proposer_failure"
	CodeSchedulingFailure    ErrorCode = "scheduling_failure"
	CodePersistenceFailure   ErrorCode = "persistence_failure"
	CodeRetryBudgetExhausted ErrorCode = "retry_budget_exhausted"
	CodeQueueUnavailable     ErrorCode = "queue_unavailable"
)

var (
	ErrInvalidPreferences   = errors.New("invalid preferences")
	ErrProposerFailure      = errors.New("proposer failure")
	ErrSchedulingFailure    = errors.New("scheduling failure")
	ErrPersistenceFailure   = errors.New("persistence failure")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	ErrQueueUnavailable     = errors.New("generation queue unavailable")
	ErrConflict             = errors.New("trip is busy")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotFound             = errors.New("not found")
	ErrVersionMismatch      = errors.New("trip was modified concurrently")
	ErrInvalidInput         = errors.New("invalid input")
)

// CodeFor maps an error chain to its stable code. Unknown errors map to scheduling_failure.
func CodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidPreferences):
		return CodeInvalidPreferences
	case errors.Is(err, ErrProposerFailure):
		return CodeProposerFailure
	case errors.Is(err, ErrPersistenceFailure), errors.Is(err, ErrVersionMismatch):
		return CodePersistenceFailure
	case errors.Is(err, ErrRetryBudgetExhausted):
		return CodeRetryBudgetExhausted
	case errors.Is(err, ErrQueueUnavailable):
		return CodeQueueUnavailable
	default:
		return CodeSchedulingFailure
	}
}

// Retryable reports whether regenerate may succeed after an error with this code.
func Retryable(code ErrorCode) bool {
	switch code {
	case CodeProposerFailure, CodeSchedulingFailure, CodePersistenceFailure, CodeQueueUnavailable:
		return true
	}
	return false
}

// TripError is the failure recorded on a trip.
type TripError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func NewTripError(err error) *TripError {
	code := CodeFor(err)
	return &TripError{Code: code, Message: err.Error(), Retryable: Retryable(code)}
}

func (e *TripError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
