package resil

import (
	"context"
	"sort"
)

// ---------------------------------------------------------------------------
// Middleware chain
// ---------------------------------------------------------------------------

// Middleware wraps a call with additional behavior. Each middleware receives
// the next function in the chain and returns a wrapped version of it.
type Middleware[T any] func(next func(context.Context) (T, error)) func(context.Context) (T, error)

// Chain composes middlewares into one. Chain(a, b, c) produces a(b(c(next)));
// a is outermost, c is innermost. Chain() returns an identity middleware.
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}

// ---------------------------------------------------------------------------
// Pattern ordering
// ---------------------------------------------------------------------------

// PatternEntry holds a middleware with its priority for auto-ordering.
type PatternEntry[T any] struct {
	MW       Middleware[T]
	Name     string
	Priority int
}

// Lower priority = outermost middleware. The retry sits outside the circuit
// breaker so that every attempt passes through the breaker's admission check
// and an open-circuit rejection reaches the retry policy as a per-attempt
// error it can decide on.
const (
	priorityTimeout        = 0 // outermost, bounds the whole composed call
	priorityRateLimiter    = 1
	priorityBulkhead       = 2
	priorityRetry          = 3
	priorityCircuitBreaker = 4 // innermost, closest to the user function
)

// SortPatterns sorts pattern entries by priority, lowest first. The sort is
// stable so entries sharing a priority keep their declaration order.
func SortPatterns[T any](entries []PatternEntry[T]) []Middleware[T] {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]PatternEntry[T], 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	mws := make([]Middleware[T], 0, len(sorted))
	for _, e := range sorted {
		mws = append(mws, e.MW)
	}

	return mws
}
