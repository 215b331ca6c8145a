package resil

import (
	"math/rand/v2"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Base delay progressions
// ---------------------------------------------------------------------------

func TestExponentialBaseProgression(t *testing.T) {
	b, err := Exponential(100*time.Millisecond, 2, time.Second)
	if err != nil {
		t.Fatalf("Exponential() error = %v", err)
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1000 * time.Millisecond, // capped
		1000 * time.Millisecond, // stays capped
	}

	for i, w := range want {
		attempt := i + 1
		if got := b.Base(attempt); got != w {
			t.Fatalf("Base(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestLinearBaseProgression(t *testing.T) {
	b, err := Linear(100*time.Millisecond, 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Linear() error = %v", err)
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		250 * time.Millisecond, // capped
		250 * time.Millisecond,
	}

	for i, w := range want {
		attempt := i + 1
		if got := b.Base(attempt); got != w {
			t.Fatalf("Base(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestConstantBase(t *testing.T) {
	b, err := Constant(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Constant() error = %v", err)
	}

	for attempt := 1; attempt <= 5; attempt++ {
		if got := b.Base(attempt); got != 50*time.Millisecond {
			t.Fatalf("Base(%d) = %v, want 50ms", attempt, got)
		}
	}
}

func TestImmediateBaseIsZero(t *testing.T) {
	b := Immediate()

	for attempt := 1; attempt <= 3; attempt++ {
		if got := b.Base(attempt); got != 0 {
			t.Fatalf("Base(%d) = %v, want 0", attempt, got)
		}
	}
}

func TestBaseClampsAttemptBelowOne(t *testing.T) {
	b, err := Exponential(100*time.Millisecond, 2, time.Second)
	if err != nil {
		t.Fatalf("Exponential() error = %v", err)
	}

	if got := b.Base(0); got != 100*time.Millisecond {
		t.Fatalf("Base(0) = %v, want 100ms (treated as attempt 1)", got)
	}
	if got := b.Base(-5); got != 100*time.Millisecond {
		t.Fatalf("Base(-5) = %v, want 100ms (treated as attempt 1)", got)
	}
}

func TestLinearBaseOverflowReturnsMax(t *testing.T) {
	b, err := Linear(time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("Linear() error = %v", err)
	}

	// A huge attempt number would overflow initial*attempt; the cap must hold.
	if got := b.Base(1 << 40); got != 24*time.Hour {
		t.Fatalf("Base(1<<40) = %v, want max 24h", got)
	}
}

// ---------------------------------------------------------------------------
// Constructor validation
// ---------------------------------------------------------------------------

func TestConstructorValidation(t *testing.T) {
	if _, err := Constant(-time.Second); err == nil {
		t.Fatal("Constant(-1s) error = nil, want validation error")
	}

	if _, err := Linear(-time.Second, time.Second); err == nil {
		t.Fatal("Linear(-1s, 1s) error = nil, want validation error")
	}

	if _, err := Linear(time.Second, 500*time.Millisecond); err == nil {
		t.Fatal("Linear(1s, 500ms) error = nil, want max below initial error")
	}

	if _, err := Exponential(time.Second, 1.0, time.Minute); err == nil {
		t.Fatal("Exponential(multiplier=1) error = nil, want validation error")
	}

	if _, err := Exponential(time.Second, 0.5, time.Minute); err == nil {
		t.Fatal("Exponential(multiplier=0.5) error = nil, want validation error")
	}

	if _, err := Exponential(time.Minute, 2, time.Second); err == nil {
		t.Fatal("Exponential(max < initial) error = nil, want validation error")
	}
}

// ---------------------------------------------------------------------------
// Jitter
// ---------------------------------------------------------------------------

func TestJitterNoneReturnsBase(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 2, time.Second)
	rng := rand.New(rand.NewPCG(1, 2))

	if got := b.Delay(3, JitterNone, 0, rng); got != 400*time.Millisecond {
		t.Fatalf("Delay(3, none) = %v, want 400ms", got)
	}
}

func TestJitterFullStaysWithinBounds(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 2, time.Second)
	rng := rand.New(rand.NewPCG(1, 2))

	for range 1000 {
		d := b.Delay(3, JitterFull, 0, rng)
		if d < 0 || d > 400*time.Millisecond {
			t.Fatalf("Delay(3, full) = %v, want in [0, 400ms]", d)
		}
	}
}

func TestJitterEqualStaysWithinBounds(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 2, time.Second)
	rng := rand.New(rand.NewPCG(3, 4))

	for range 1000 {
		d := b.Delay(3, JitterEqual, 0, rng)
		if d < 200*time.Millisecond || d > 400*time.Millisecond {
			t.Fatalf("Delay(3, equal) = %v, want in [200ms, 400ms]", d)
		}
	}
}

func TestJitterDecorrelatedStaysWithinBounds(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 3, 10*time.Second)
	rng := rand.New(rand.NewPCG(5, 6))

	prev := 200 * time.Millisecond
	for range 1000 {
		d := b.Delay(2, JitterDecorrelated, prev, rng)
		if d < 100*time.Millisecond || d > prev*3 {
			t.Fatalf("Delay(decorrelated, prev=%v) = %v, want in [100ms, %v]", prev, d, prev*3)
		}

		prev = d
		if prev > 10*time.Second {
			t.Fatalf("decorrelated delay %v escaped the 10s cap", prev)
		}
	}
}

func TestJitterDecorrelatedRespectsCap(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 2, 500*time.Millisecond)
	rng := rand.New(rand.NewPCG(7, 8))

	// With a very large previous delay, the cap must bound the result.
	for range 100 {
		d := b.Delay(4, JitterDecorrelated, time.Hour, rng)
		if d > 500*time.Millisecond {
			t.Fatalf("Delay(decorrelated, prev=1h) = %v, want <= 500ms", d)
		}
	}
}

func TestJitterDecorrelatedZeroPreviousUsesInitial(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 2, time.Second)
	rng := rand.New(rand.NewPCG(9, 10))

	// With previousDelay=0 the range collapses to the initial delay.
	if d := b.Delay(1, JitterDecorrelated, 0, rng); d != 100*time.Millisecond {
		t.Fatalf("Delay(decorrelated, prev=0) = %v, want 100ms", d)
	}
}

func TestJitterFullZeroBase(t *testing.T) {
	b := Immediate()
	rng := rand.New(rand.NewPCG(11, 12))

	if d := b.Delay(1, JitterFull, 0, rng); d != 0 {
		t.Fatalf("Delay(immediate, full) = %v, want 0", d)
	}
}

func TestJitterNilRandUsesProcessGenerator(t *testing.T) {
	b, _ := Exponential(100*time.Millisecond, 2, time.Second)

	d := b.Delay(2, JitterFull, 0, nil)
	if d < 0 || d > 200*time.Millisecond {
		t.Fatalf("Delay with nil rng = %v, want in [0, 200ms]", d)
	}
}

func TestJitterString(t *testing.T) {
	cases := []struct {
		j    Jitter
		want string
	}{
		{JitterNone, "none"},
		{JitterFull, "full"},
		{JitterEqual, "equal"},
		{JitterDecorrelated, "decorrelated"},
	}

	for _, tc := range cases {
		if got := tc.j.String(); got != tc.want {
			t.Fatalf("Jitter(%d).String() = %q, want %q", tc.j, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Benchmarks
// ---------------------------------------------------------------------------

func BenchmarkExponentialDelay(b *testing.B) {
	bo, _ := Exponential(100*time.Millisecond, 2, time.Second)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; b.Loop(); i++ {
		_ = bo.Delay(i%10+1, JitterFull, 0, rng)
	}
}
