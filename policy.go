package resil

import (
	"context"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Policy[T] — the central integration type
// ---------------------------------------------------------------------------

// Policy composes resilience patterns (timeout, rate limiter, bulkhead,
// retry, circuit breaker) behind a single [Policy.Do] method. Use [NewPolicy]
// with functional options to configure it.
//
// Generic pattern options are declared as any because Go does not allow a
// generic option type to mix generic and non-generic constructors; NewPolicy
// interprets the descriptors by type switch.
type Policy[T any] struct {
	name  string
	hooks *Hooks
	clock Clock
	rng   Rand
	chain Middleware[T]

	// References kept for health reporting.
	entries []PatternEntry[T]
	cb      *CircuitBreaker
	rl      *RateLimiter
	bh      *Bulkhead

	// Hierarchical health dependencies.
	deps []HealthReporter

	// Registry this policy is registered with (nil if anonymous or opted out).
	registry *Registry
}

// Name returns the policy's name.
func (p *Policy[T]) Name() string { return p.name }

// Do executes fn through the composed middleware chain.
func (p *Policy[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	wrapped := p.chain(fn)
	return wrapped(ctx)
}

// Breaker returns the policy's circuit breaker, or nil if none is configured.
func (p *Policy[T]) Breaker() *CircuitBreaker { return p.cb }

// ---------------------------------------------------------------------------
// Non-generic option descriptors — stored as any, interpreted by NewPolicy[T]
// ---------------------------------------------------------------------------

// policyOptionFunc is a non-generic option that modifies policySetup.
type policyOptionFunc func(*policySetup)

// policySetup holds non-generic configuration collected during NewPolicy.
type policySetup struct {
	clock    Clock
	hooks    *Hooks
	rng      Rand
	registry *Registry
}

type timeoutDesc struct {
	d time.Duration
}

type retryDesc struct {
	cfg RetryConfig
}

type retryPolicyDesc struct {
	policy RetryPolicy
}

type circuitBreakerDesc struct {
	opts []BreakerOption
}

type rateLimitDesc struct {
	rate float64
	opts []RateLimitOption
}

type bulkheadDesc struct {
	maxConcurrent int
}

type dependsOnDesc struct {
	reporters []HealthReporter
}

// ---------------------------------------------------------------------------
// With* functions — all return any
// ---------------------------------------------------------------------------

// WithClock sets the clock used by every pattern within this policy.
func WithClock(c Clock) any {
	return policyOptionFunc(func(s *policySetup) {
		s.clock = c
	})
}

// WithHooks sets the lifecycle hooks for every pattern within this policy.
func WithHooks(h *Hooks) any {
	return policyOptionFunc(func(s *policySetup) {
		s.hooks = h
	})
}

// WithRand sets the randomness source used for jittered backoff delays.
func WithRand(rng Rand) any {
	return policyOptionFunc(func(s *policySetup) {
		s.rng = rng
	})
}

// WithRegistry sets an explicit registry for the policy to register with.
// If not provided, named policies auto-register with [DefaultRegistry].
func WithRegistry(reg *Registry) any {
	return policyOptionFunc(func(s *policySetup) {
		s.registry = reg
	})
}

// WithTimeout bounds each composed call to d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// WithRetry adds retry logic driven by cfg's backoff and jitter settings.
func WithRetry(cfg RetryConfig) any {
	return retryDesc{cfg: cfg}
}

// WithRetryPolicy adds retry logic driven by a caller-supplied [RetryPolicy]
// instead of a declarative [RetryConfig].
func WithRetryPolicy(policy RetryPolicy) any {
	return retryPolicyDesc{policy: policy}
}

// WithCircuitBreaker adds a circuit breaker that fast-fails while the
// downstream is unhealthy. The breaker takes the policy's name.
func WithCircuitBreaker(opts ...BreakerOption) any {
	return circuitBreakerDesc{opts: opts}
}

// WithRateLimit adds a token-bucket rate limiter allowing rate calls per second.
func WithRateLimit(rate float64, opts ...RateLimitOption) any {
	return rateLimitDesc{rate: rate, opts: opts}
}

// WithBulkhead adds a concurrency limiter that rejects calls when all
// maxConcurrent slots are in use.
func WithBulkhead(maxConcurrent int) any {
	return bulkheadDesc{maxConcurrent: maxConcurrent}
}

// DependsOn declares hierarchical health dependencies. An unhealthy critical
// dependency degrades this policy's reported health.
func DependsOn(reporters ...HealthReporter) any {
	return dependsOnDesc{reporters: reporters}
}

// ---------------------------------------------------------------------------
// NewPolicy[T] — construct and wire up the policy
// ---------------------------------------------------------------------------

// NewPolicy creates a [Policy] with the given name and options. Options are
// processed in two phases: non-generic options (clock, hooks, rng, registry)
// are collected first, then pattern descriptors build their middleware using
// the resolved values. Patterns are auto-sorted by priority via
// [SortPatterns] before chaining, so declaration order never changes
// execution order.
func NewPolicy[T any](name string, opts ...any) (*Policy[T], error) {
	var setup policySetup

	for _, opt := range opts {
		if pof, ok := opt.(policyOptionFunc); ok {
			pof(&setup)
		}
	}

	if setup.clock == nil {
		setup.clock = SystemClock{}
	}

	if setup.rng == nil {
		setup.rng = defaultRand
	}

	hooks := setup.hooks
	clock := setup.clock
	rng := setup.rng

	var (
		entries []PatternEntry[T]
		cb      *CircuitBreaker
		rl      *RateLimiter
		bh      *Bulkhead
		deps    []HealthReporter
	)

	for _, opt := range opts {
		switch desc := opt.(type) {
		case policyOptionFunc:
			// Already processed in phase 1.

		case timeoutDesc:
			d := desc.d
			entries = append(entries, PatternEntry[T]{
				Priority: priorityTimeout,
				Name:     "timeout",
				MW: func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
					return func(ctx context.Context) (T, error) {
						return DoTimeout[T](ctx, d, next, hooks)
					}
				},
			})

		case retryDesc:
			cfg := desc.cfg
			entries = append(entries, PatternEntry[T]{
				Priority: priorityRetry,
				Name:     "retry",
				MW: func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
					return func(ctx context.Context) (T, error) {
						return Retry[T](ctx, cfg, next,
							RetryClock(clock), RetryHooks(hooks), RetryRand(rng))
					}
				},
			})

		case retryPolicyDesc:
			policy := desc.policy
			entries = append(entries, PatternEntry[T]{
				Priority: priorityRetry,
				Name:     "retry",
				MW: func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
					return func(ctx context.Context) (T, error) {
						return RetryWithPolicy[T](ctx, policy, next,
							RetryClock(clock), RetryHooks(hooks), RetryRand(rng))
					}
				},
			})

		case circuitBreakerDesc:
			var err error

			cb, err = NewCircuitBreaker(name, clock, hooks, desc.opts...)
			if err != nil {
				return nil, fmt.Errorf("policy %q: circuit breaker: %w", name, err)
			}

			cbRef := cb
			entries = append(entries, PatternEntry[T]{
				Priority: priorityCircuitBreaker,
				Name:     "circuit_breaker",
				MW: func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
					return func(ctx context.Context) (T, error) {
						if err := cbRef.Allow(); err != nil {
							var zero T
							return zero, err
						}

						val, err := next(ctx)
						if err != nil {
							cbRef.RecordFailure()
						} else {
							cbRef.RecordSuccess()
						}

						return val, err
					}
				},
			})

		case rateLimitDesc:
			rl = NewRateLimiter(desc.rate, clock, hooks, desc.opts...)
			rlRef := rl
			entries = append(entries, PatternEntry[T]{
				Priority: priorityRateLimiter,
				Name:     "rate_limiter",
				MW: func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
					return func(ctx context.Context) (T, error) {
						if err := rlRef.Allow(ctx); err != nil {
							var zero T
							return zero, err
						}

						return next(ctx)
					}
				},
			})

		case bulkheadDesc:
			bh = NewBulkhead(desc.maxConcurrent, hooks)
			bhRef := bh
			entries = append(entries, PatternEntry[T]{
				Priority: priorityBulkhead,
				Name:     "bulkhead",
				MW: func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
					return func(ctx context.Context) (T, error) {
						if err := bhRef.Acquire(); err != nil {
							var zero T
							return zero, err
						}
						defer bhRef.Release()

						return next(ctx)
					}
				},
			})

		case dependsOnDesc:
			deps = append(deps, desc.reporters...)

		default:
			return nil, fmt.Errorf("policy %q: unknown option %T", name, opt)
		}
	}

	sorted := SortPatterns[T](entries)
	chain := Chain[T](sorted...)

	// Auto-register if the policy has a name.
	var reg *Registry
	if name != "" {
		reg = setup.registry
		if reg == nil {
			reg = DefaultRegistry()
		}
	}

	p := &Policy[T]{
		name:     name,
		hooks:    hooks,
		clock:    clock,
		rng:      rng,
		chain:    chain,
		entries:  entries,
		cb:       cb,
		rl:       rl,
		bh:       bh,
		deps:     deps,
		registry: reg,
	}

	if reg != nil {
		reg.Register(p)
	}

	return p, nil
}
