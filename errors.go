package resil

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

// toolkitError is the concrete type backing all sentinel errors.
type toolkitError string

func (e toolkitError) Error() string { return string(e) }

// Sentinel errors produced by the toolkit itself, as opposed to errors from
// the wrapped operation. Structured variants ([CircuitOpenError],
// [ExhaustedError]) match their sentinel via errors.Is.
var (
	// ErrCircuitOpen is returned when a breaker rejects a call without
	// invoking the operation.
	ErrCircuitOpen error = toolkitError("circuit breaker is open")
	// ErrRetriesExhausted is returned when the attempt budget was the
	// reason retrying stopped.
	ErrRetriesExhausted error = toolkitError("retry attempts exhausted")
	// ErrCancelled is returned when external cancellation fires mid-attempt
	// or mid-backoff.
	ErrCancelled error = toolkitError("retry cancelled")
	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout error = toolkitError("operation timed out")
	// ErrRateLimited is returned when a rate limiter rejects a call.
	ErrRateLimited error = toolkitError("rate limited")
	// ErrBulkheadFull is returned when the bulkhead has no free slot.
	ErrBulkheadFull error = toolkitError("bulkhead full")
)

// ---------------------------------------------------------------------------
// Structured errors
// ---------------------------------------------------------------------------

// CircuitOpenError reports a call rejected by an open breaker. It carries the
// breaker's identity and the time remaining until the next trial is admitted.
type CircuitOpenError struct {
	// Breaker is the name of the rejecting breaker.
	Breaker string
	// RetryAfter is how long until the breaker admits a half-open trial.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf(
		"circuit breaker %q is open, retry after %v", e.Breaker, e.RetryAfter,
	)
}

// Is reports whether target is [ErrCircuitOpen].
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// ExhaustedError reports that the retry attempt budget was spent. It wraps
// the error from the final attempt.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// Last is the error returned by the final attempt.
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry attempts exhausted after %d tries: %v", e.Attempts, e.Last)
}

// Unwrap returns the final attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is reports whether target is [ErrRetriesExhausted].
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// ---------------------------------------------------------------------------
// Transient / Permanent classification
// ---------------------------------------------------------------------------

// transientError marks a wrapped error as transient (retryable).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// permanentError marks a wrapped error as permanent (non-retryable).
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient wraps err to mark it as retryable. Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent wraps err to mark it as non-retryable; the default retry policy
// stops immediately on permanent errors. Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsPermanent reports whether err was explicitly marked permanent.
// Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return errors.As(err, &pe)
}

// IsTransient reports whether err should be treated as retryable.
// Unclassified errors are transient; explicitly permanent ones are not.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err)
}
