package resil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// States and configuration
// ---------------------------------------------------------------------------

// CircuitState is the breaker's position in its three-state machine.
// Transitions follow closed → open → half-open → {closed | open}; there is no
// path from closed straight to half-open.
type CircuitState int

const (
	// StateClosed admits every call and counts consecutive failures.
	StateClosed CircuitState = iota
	// StateOpen rejects calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of trial calls to probe recovery.
	StateHalfOpen
)

// String returns the state as "closed", "open", or "half_open".
func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type breakerConfig struct {
	failureThreshold int
	successThreshold int
	halfOpenMaxCalls int
	openTimeout      time.Duration
}

// BreakerOption configures a circuit breaker.
type BreakerOption func(*breakerConfig)

// FailureThreshold sets the consecutive failures that open the breaker.
func FailureThreshold(n int) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.failureThreshold = n
	}
}

// SuccessThreshold sets the consecutive half-open successes that close the
// breaker.
func SuccessThreshold(n int) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.successThreshold = n
	}
}

// OpenTimeout sets how long the breaker stays open before it admits a
// half-open trial.
func OpenTimeout(d time.Duration) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.openTimeout = d
	}
}

// HalfOpenMaxCalls sets how many trial calls may be in flight at once while
// half-open. The default of 1 admits a single trial and holds further calls
// back until it resolves.
func HalfOpenMaxCalls(n int) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.halfOpenMaxCalls = n
	}
}

func defaultBreakerConfig() breakerConfig {
	return breakerConfig{
		failureThreshold: 5,
		successThreshold: 2,
		halfOpenMaxCalls: 1,
		openTimeout:      30 * time.Second,
	}
}

func (cfg breakerConfig) validate() error {
	switch {
	case cfg.failureThreshold < 1:
		return fmt.Errorf("circuit breaker: failure threshold %d must be >= 1", cfg.failureThreshold)
	case cfg.successThreshold < 1:
		return fmt.Errorf("circuit breaker: success threshold %d must be >= 1", cfg.successThreshold)
	case cfg.halfOpenMaxCalls < 1:
		return fmt.Errorf("circuit breaker: half-open max calls %d must be >= 1", cfg.halfOpenMaxCalls)
	case cfg.openTimeout < 0:
		return fmt.Errorf("circuit breaker: open timeout %v is negative", cfg.openTimeout)
	}

	return nil
}

// ---------------------------------------------------------------------------
// CircuitBreaker
// ---------------------------------------------------------------------------

// CircuitBreaker guards one downstream dependency. A single instance is
// shared by reference across every concurrent caller of that dependency.
//
// All state lives behind one mutex that is held only across the
// decide-and-transition step, never across the guarded operation, so a slow
// call cannot serialize unrelated traffic through the breaker.
type CircuitBreaker struct {
	name  string
	cfg   breakerConfig
	clock Clock
	hooks *Hooks

	mu                   sync.Mutex
	state                CircuitState
	openedAt             time.Time
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenInFlight     int
	totalCalls           uint64
	totalFailures        uint64
	totalSuccesses       uint64
}

// NewCircuitBreaker creates a breaker with the given identity and options.
// A nil clock defaults to [SystemClock]; hooks may be nil. Invalid thresholds
// are rejected here, never at call time.
func NewCircuitBreaker(name string, clock Clock, hooks *Hooks, opts ...BreakerOption) (*CircuitBreaker, error) {
	cfg := defaultBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = SystemClock{}
	}

	return &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		clock: clock,
		hooks: hooks,
	}, nil
}

// Name returns the breaker's identity.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Allow decides whether a call may proceed. It returns nil when the call is
// admitted (closed, or as a half-open trial) and a [*CircuitOpenError]
// otherwise. Every decision, including rejections, counts toward TotalCalls.
//
// While open, the first Allow at or after the open timeout transitions the
// breaker to half-open and admits that same call as the trial.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()

	cb.totalCalls++

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return nil

	case StateOpen:
		elapsed := cb.clock.Since(cb.openedAt)
		if elapsed < cb.cfg.openTimeout {
			remaining := cb.cfg.openTimeout - elapsed
			cb.mu.Unlock()
			cb.hooks.emitCircuitReject(cb.name)

			return &CircuitOpenError{Breaker: cb.name, RetryAfter: remaining}
		}

		// Timeout elapsed: this call becomes the half-open trial.
		cb.state = StateHalfOpen
		cb.consecutiveSuccesses = 0
		cb.halfOpenInFlight = 1
		cb.mu.Unlock()
		cb.hooks.emitCircuitHalfOpen(cb.name)

		return nil

	default: // StateHalfOpen
		if cb.halfOpenInFlight >= cb.cfg.halfOpenMaxCalls {
			cb.mu.Unlock()
			cb.hooks.emitCircuitReject(cb.name)

			return &CircuitOpenError{Breaker: cb.name}
		}

		cb.halfOpenInFlight++
		cb.mu.Unlock()

		return nil
	}
}

// RecordSuccess records a successful completion of an admitted call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	cb.totalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0

	case StateHalfOpen:
		if cb.halfOpenInFlight > 0 {
			cb.halfOpenInFlight--
		}

		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.cfg.successThreshold {
			cb.state = StateClosed
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
			cb.halfOpenInFlight = 0
			cb.mu.Unlock()
			cb.hooks.emitCircuitClose(cb.name)

			return
		}

	case StateOpen:
		// A call admitted before the breaker opened finished late.
	}

	cb.mu.Unlock()
}

// RecordFailure records a failed completion of an admitted call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	cb.totalFailures++

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.cfg.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.clock.Now()
			cb.consecutiveFailures = 0
			cb.mu.Unlock()
			cb.hooks.emitCircuitOpen(cb.name)

			return
		}

	case StateHalfOpen:
		// Any trial failure reopens immediately, discarding partial progress.
		cb.state = StateOpen
		cb.openedAt = cb.clock.Now()
		cb.consecutiveSuccesses = 0
		cb.halfOpenInFlight = 0
		cb.mu.Unlock()
		cb.hooks.emitCircuitOpen(cb.name)

		return

	case StateOpen:
		// Late failure of a pre-open call; already open.
	}

	cb.mu.Unlock()
}

// State returns a read-only snapshot of the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

// BreakerMetrics is a point-in-time snapshot of a breaker's counters.
// Rejected calls count in TotalCalls but not in TotalFailures.
type BreakerMetrics struct {
	State          CircuitState
	OpenedAt       time.Time
	TotalCalls     uint64
	TotalFailures  uint64
	TotalSuccesses uint64
}

// SuccessRate returns TotalSuccesses/TotalCalls, or 0 before any call.
func (m BreakerMetrics) SuccessRate() float64 {
	if m.TotalCalls == 0 {
		return 0
	}

	return float64(m.TotalSuccesses) / float64(m.TotalCalls)
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() BreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerMetrics{
		State:          cb.state,
		OpenedAt:       cb.openedAt,
		TotalCalls:     cb.totalCalls,
		TotalFailures:  cb.totalFailures,
		TotalSuccesses: cb.totalSuccesses,
	}
}

// ---------------------------------------------------------------------------
// Calling through the breaker
// ---------------------------------------------------------------------------

// Call invokes fn under cb's protection. Rejections return a
// [*CircuitOpenError] without invoking fn; otherwise fn's outcome is recorded
// and returned unchanged. The breaker's lock is never held while fn runs.
func Call[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := cb.Allow(); err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	if err != nil {
		cb.RecordFailure()
		return zero, err
	}

	cb.RecordSuccess()

	return val, nil
}

// Guard wraps fn with cb so the result can be handed to [Retry] or
// [RetryWithPolicy]: breaker rejections surface to the retry policy exactly
// like any other error.
func Guard[T any](cb *CircuitBreaker, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Call(ctx, cb, fn)
	}
}
