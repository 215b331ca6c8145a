package resil

import (
	"fmt"
	"math"
	"time"
)

// ---------------------------------------------------------------------------
// Backoff strategies
// ---------------------------------------------------------------------------

// backoffKind discriminates the built-in strategies.
type backoffKind int

const (
	backoffImmediate backoffKind = iota
	backoffConstant
	backoffLinear
	backoffExponential
)

// Backoff is an immutable description of how the base delay grows with the
// attempt number. Values are built through the constructors, which validate
// eagerly so a bad configuration can never surface at call time.
type Backoff struct {
	kind       backoffKind
	initial    time.Duration
	max        time.Duration
	multiplier float64
}

// Immediate returns a strategy with no delay between attempts.
func Immediate() Backoff {
	return Backoff{kind: backoffImmediate}
}

// Constant returns a strategy with the same delay before every attempt.
func Constant(delay time.Duration) (Backoff, error) {
	if delay < 0 {
		return Backoff{}, fmt.Errorf("constant backoff: delay %v is negative", delay)
	}

	return Backoff{kind: backoffConstant, initial: delay, max: delay}, nil
}

// Linear returns a strategy whose base delay is initial*attempt, capped at
// max. With initial=100ms the progression is 100, 200, 300ms and so on.
func Linear(initial, max time.Duration) (Backoff, error) {
	switch {
	case initial < 0:
		return Backoff{}, fmt.Errorf("linear backoff: initial %v is negative", initial)
	case max < initial:
		return Backoff{}, fmt.Errorf("linear backoff: max %v is below initial %v", max, initial)
	}

	return Backoff{kind: backoffLinear, initial: initial, max: max}, nil
}

// Exponential returns a strategy whose base delay is
// initial*multiplier^(attempt-1), capped at max.
func Exponential(initial time.Duration, multiplier float64, max time.Duration) (Backoff, error) {
	switch {
	case initial < 0:
		return Backoff{}, fmt.Errorf("exponential backoff: initial %v is negative", initial)
	case multiplier <= 1:
		return Backoff{}, fmt.Errorf("exponential backoff: multiplier %v must be > 1", multiplier)
	case max < initial:
		return Backoff{}, fmt.Errorf("exponential backoff: max %v is below initial %v", max, initial)
	}

	return Backoff{kind: backoffExponential, initial: initial, max: max, multiplier: multiplier}, nil
}

// Base returns the pre-jitter delay for the given 1-based attempt number.
func (b Backoff) Base(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	switch b.kind {
	case backoffConstant:
		return b.initial

	case backoffLinear:
		d := b.initial * time.Duration(attempt)
		// Guard against overflow for very large attempt numbers.
		if d < 0 || d > b.max {
			return b.max
		}

		return d

	case backoffExponential:
		f := float64(b.initial) * math.Pow(b.multiplier, float64(attempt-1))
		if f >= float64(b.max) {
			return b.max
		}

		return time.Duration(f)

	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// Jitter
// ---------------------------------------------------------------------------

// Jitter selects the randomization applied to the base delay to spread
// simultaneous retries apart.
type Jitter int

const (
	// JitterNone leaves the base delay unchanged.
	JitterNone Jitter = iota
	// JitterFull picks uniformly from [0, base].
	JitterFull
	// JitterEqual picks uniformly from [base/2, base].
	JitterEqual
	// JitterDecorrelated picks uniformly from [initial, previousDelay*3],
	// capped at the strategy's max. The caller must thread the previous
	// delay forward on each attempt.
	JitterDecorrelated
)

// String returns the jitter mode as its configuration name.
func (j Jitter) String() string {
	switch j {
	case JitterFull:
		return "full"
	case JitterEqual:
		return "equal"
	case JitterDecorrelated:
		return "decorrelated"
	default:
		return "none"
	}
}

// Delay computes the jittered delay before the given 1-based attempt.
// previousDelay is the delay used before the previous attempt (zero on the
// first); it only influences [JitterDecorrelated]. rng may be nil, in which
// case the process-wide generator is used. The result is always >= 0 and
// never exceeds the strategy's cap.
func (b Backoff) Delay(attempt int, jitter Jitter, previousDelay time.Duration, rng Rand) time.Duration {
	if rng == nil {
		rng = defaultRand
	}

	base := b.Base(attempt)

	switch jitter {
	case JitterFull:
		if base <= 0 {
			return 0
		}

		return time.Duration(rng.Int64N(int64(base) + 1))

	case JitterEqual:
		half := base / 2
		if half <= 0 {
			return base
		}

		return half + time.Duration(rng.Int64N(int64(half)+1))

	case JitterDecorrelated:
		lo := b.initial
		hi := previousDelay * 3

		d := lo
		if hi > lo {
			d = lo + time.Duration(rng.Int64N(int64(hi-lo)+1))
		}

		if b.max > 0 && d > b.max {
			d = b.max
		}

		return d

	default:
		return base
	}
}
