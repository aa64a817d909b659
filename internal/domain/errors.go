package domain

import (
	"errors"
	"fmt"
)

// Precondition violations. Surfaced to the caller as-is; retrying
// without changing state cannot succeed.
var (
	ErrDuplicateActiveClaim = errors.New("user already holds an active claim on this book")
	ErrNotPending           = errors.New("borrow record is not pending")
	ErrNoActiveLoan         = errors.New("no active loan found")
	ErrRecordNotTerminal    = errors.New("borrow record is not in a terminal state")
	ErrZeroAmount           = errors.New("settlement amount must be positive")
	ErrLoanDaysOutOfRange   = errors.New("loan days out of range")
	ErrSettlementInProgress = errors.New("an unresolved payment intent already exists for this borrow record")
)

// Resource contention. A normal business outcome, not a system fault.
var ErrNoCopiesAvailable = errors.New("no copies available")

// Integrity faults. Escalated for manual reconciliation, never
// auto-resolved.
var (
	ErrConflictingSettlement = errors.New("conflicting settlement outcome for confirmed intent")
	ErrAmountMismatch        = errors.New("reported amount does not match intent amount")
)

var ErrNotFound = errors.New("not found")

var ErrUnauthorized = errors.New("unauthorized")

// RetryableError marks external-dependency faults where a fresh attempt
// is sensible (gateway timeout or unreachable).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError.
func Retryable(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether the caller may reasonably retry the
// operation that produced err.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
