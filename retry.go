package resil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Policy capability
// ---------------------------------------------------------------------------

// RetryContext describes one failed attempt; it is handed to the policy each
// time the operation fails.
type RetryContext struct {
	// Attempt is the 1-based number of the attempt that just failed.
	Attempt int
	// Err is the error that attempt returned.
	Err error
	// Elapsed is the total time since the first attempt started.
	Elapsed time.Duration
	// PreviousDelay is the backoff slept before this attempt (zero on the
	// first attempt). Decorrelated jitter feeds on it.
	PreviousDelay time.Duration
}

// RetryDecision is a policy's verdict on a failed attempt. Build one with
// [DoNotRetry] or [RetryAfter].
type RetryDecision struct {
	retry bool
	delay time.Duration
}

// DoNotRetry stops retrying; the executor returns the last error.
func DoNotRetry() RetryDecision { return RetryDecision{} }

// RetryAfter retries the operation after sleeping for delay.
func RetryAfter(delay time.Duration) RetryDecision {
	return RetryDecision{retry: true, delay: delay}
}

// Retry reports whether the decision is to retry.
func (d RetryDecision) Retry() bool { return d.retry }

// Delay returns the backoff the decision carries.
func (d RetryDecision) Delay() time.Duration { return d.delay }

// RetryPolicy decides whether and when a failed operation is attempted
// again. Implementations must be safe for concurrent use; the executor holds
// no state between calls.
type RetryPolicy interface {
	ShouldRetry(rc RetryContext) RetryDecision
}

// RetryPolicyFunc adapts an ordinary function into a [RetryPolicy].
type RetryPolicyFunc func(rc RetryContext) RetryDecision

// ShouldRetry calls the underlying function.
func (f RetryPolicyFunc) ShouldRetry(rc RetryContext) RetryDecision { return f(rc) }

// ---------------------------------------------------------------------------
// RetryConfig and the derived default policy
// ---------------------------------------------------------------------------

// RetryConfig is an immutable retry specification: attempt budget, backoff
// strategy, and jitter mode. Build it once at startup with [NewRetryConfig].
type RetryConfig struct {
	maxAttempts      int
	backoff          Backoff
	jitter           Jitter
	retryCircuitOpen bool
}

// RetryConfigOption adjusts a [RetryConfig] under construction.
type RetryConfigOption func(*RetryConfig)

// WithJitter sets the jitter mode (default [JitterNone]).
func WithJitter(j Jitter) RetryConfigOption {
	return func(cfg *RetryConfig) {
		cfg.jitter = j
	}
}

// RetryOnCircuitOpen makes the default policy treat breaker rejections as
// retryable. By default they stop the retry loop, since busy-looping against
// an open breaker wastes the attempt budget on calls that cannot succeed.
func RetryOnCircuitOpen() RetryConfigOption {
	return func(cfg *RetryConfig) {
		cfg.retryCircuitOpen = true
	}
}

// NewRetryConfig builds a validated retry configuration.
// maxAttempts must be >= 1.
func NewRetryConfig(maxAttempts int, backoff Backoff, opts ...RetryConfigOption) (RetryConfig, error) {
	if maxAttempts < 1 {
		return RetryConfig{}, fmt.Errorf("retry: max attempts %d must be >= 1", maxAttempts)
	}

	cfg := RetryConfig{maxAttempts: maxAttempts, backoff: backoff, jitter: JitterNone}
	for _, o := range opts {
		o(&cfg)
	}

	return cfg, nil
}

// MaxAttempts returns the attempt budget.
func (cfg RetryConfig) MaxAttempts() int { return cfg.maxAttempts }

// Backoff returns the backoff strategy.
func (cfg RetryConfig) Backoff() Backoff { return cfg.backoff }

// Jitter returns the jitter mode.
func (cfg RetryConfig) Jitter() Jitter { return cfg.jitter }

// Policy derives the default [RetryPolicy] from the configuration: stop on
// permanent errors, stop on open-breaker rejections (unless
// [RetryOnCircuitOpen] was set), stop when the attempt budget is spent, and
// otherwise retry after the configured backoff with jitter applied.
// rng may be nil to use the process-wide generator.
func (cfg RetryConfig) Policy(rng Rand) RetryPolicy {
	return &defaultPolicy{cfg: cfg, rng: rng}
}

type defaultPolicy struct {
	cfg RetryConfig
	rng Rand
}

func (p *defaultPolicy) ShouldRetry(rc RetryContext) RetryDecision {
	if IsPermanent(rc.Err) {
		return DoNotRetry()
	}

	if !p.cfg.retryCircuitOpen && errors.Is(rc.Err, ErrCircuitOpen) {
		return DoNotRetry()
	}

	if rc.Attempt >= p.cfg.maxAttempts {
		return DoNotRetry()
	}

	return RetryAfter(p.cfg.backoff.Delay(rc.Attempt, p.cfg.jitter, rc.PreviousDelay, p.rng))
}

// ---------------------------------------------------------------------------
// Executor
// ---------------------------------------------------------------------------

type retryRunner struct {
	clock Clock
	hooks *Hooks
	rng   Rand
}

// RetryOption injects collaborators into a single [Retry] or
// [RetryWithPolicy] call. Unset collaborators default to the real clock, no
// hooks, and the process-wide random generator.
type RetryOption func(*retryRunner)

// RetryClock sets the clock used for elapsed-time tracking and backoff
// sleeps.
func RetryClock(c Clock) RetryOption {
	return func(r *retryRunner) {
		r.clock = c
	}
}

// RetryHooks sets the hooks notified on each retry.
func RetryHooks(h *Hooks) RetryOption {
	return func(r *retryRunner) {
		r.hooks = h
	}
}

// RetryRand sets the randomness source for jitter.
func RetryRand(rng Rand) RetryOption {
	return func(r *retryRunner) {
		r.rng = rng
	}
}

func newRetryRunner(opts []RetryOption) retryRunner {
	r := retryRunner{}
	for _, o := range opts {
		o(&r)
	}

	if r.clock == nil {
		r.clock = SystemClock{}
	}

	return r
}

// Retry executes fn under cfg's derived default policy. See
// [RetryWithPolicy] for the full contract.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error), opts ...RetryOption) (T, error) {
	r := newRetryRunner(opts)

	return runRetry(ctx, cfg.Policy(r.rng), fn, r)
}

// RetryWithPolicy executes fn, consulting policy after every failure.
//
// Success returns immediately. When the policy stops after the first attempt
// the error passes through unwrapped; stopping after a later attempt wraps
// it in [*ExhaustedError]. Cancellation of ctx aborts both a pending backoff
// sleep and the loop itself and returns an error matching [ErrCancelled].
// The backoff sleep suspends only the calling goroutine. Each invocation is
// at most once per attempt; nothing is re-executed behind the caller's back.
func RetryWithPolicy[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error), opts ...RetryOption) (T, error) {
	return runRetry(ctx, policy, fn, newRetryRunner(opts))
}

func runRetry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error), r retryRunner) (T, error) {
	var zero T

	start := r.clock.Now()
	previousDelay := time.Duration(0)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, cancelledError(err)
		}

		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}

		// The operation may have failed because the caller's deadline fired
		// mid-flight; report that as cancellation, not as a retry outcome.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, cancelledError(ctxErr)
		}

		decision := policy.ShouldRetry(RetryContext{
			Attempt:       attempt,
			Err:           err,
			Elapsed:       r.clock.Since(start),
			PreviousDelay: previousDelay,
		})

		if !decision.retry {
			if attempt > 1 {
				return zero, &ExhaustedError{Attempts: attempt, Last: err}
			}

			return zero, err
		}

		delay := decision.delay
		if delay < 0 {
			delay = 0
		}

		r.hooks.emitRetry(attempt, delay, err)

		if delay > 0 {
			timer := r.clock.NewTimer(delay)
			select {
			case <-timer.C():
			case <-ctx.Done():
				timer.Stop()
				return zero, cancelledError(ctx.Err())
			}
		}

		previousDelay = delay
	}
}

func cancelledError(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
