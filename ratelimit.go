package resil

import (
	"context"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type rateLimitConfig struct {
	blocking bool
}

// RateLimitOption configures rate limiter behavior.
type RateLimitOption func(*rateLimitConfig)

// RateLimitBlocking makes the limiter wait for a token instead of rejecting.
func RateLimitBlocking() RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.blocking = true
	}
}

// ---------------------------------------------------------------------------
// RateLimiter
// ---------------------------------------------------------------------------

// RateLimiter throttles calls with a token bucket of capacity rate refilled
// at rate tokens per second. The bucket is guarded by a mutex held only for
// the refill-and-take step.
type RateLimiter struct {
	rate  float64
	clock Clock
	hooks *Hooks
	cfg   rateLimitConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing rate calls per second.
func NewRateLimiter(rate float64, clock Clock, hooks *Hooks, opts ...RateLimitOption) *RateLimiter {
	var cfg rateLimitConfig
	for _, o := range opts {
		o(&cfg)
	}

	if clock == nil {
		clock = SystemClock{}
	}

	return &RateLimiter{
		rate:       rate,
		clock:      clock,
		hooks:      hooks,
		cfg:        cfg,
		tokens:     rate, // start with a full bucket
		lastRefill: clock.Now(),
	}
}

// take refills the bucket from elapsed time and claims one token if present.
func (rl *RateLimiter) take() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	if elapsed > 0 {
		rl.tokens += elapsed.Seconds() * rl.rate
		if rl.tokens > rl.rate {
			rl.tokens = rl.rate
		}
	}

	if rl.tokens < 1 {
		return false
	}

	rl.tokens--

	return true
}

// Allow claims a token. In reject mode (the default) it returns
// [ErrRateLimited] when the bucket is empty; in blocking mode it waits for a
// token, honoring ctx cancellation.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	if rl.take() {
		return nil
	}

	if !rl.cfg.blocking {
		rl.hooks.emitRateLimited()
		return ErrRateLimited
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		timer := rl.clock.NewTimer(time.Millisecond)
		select {
		case <-timer.C():
			if rl.take() {
				return nil
			}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Saturated reports whether the bucket is currently empty.
func (rl *RateLimiter) Saturated() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	if elapsed > 0 {
		rl.tokens += elapsed.Seconds() * rl.rate
		if rl.tokens > rl.rate {
			rl.tokens = rl.rate
		}
	}

	return rl.tokens < 1
}
