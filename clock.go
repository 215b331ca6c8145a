package resil

import "time"

// Clock abstracts time so that open-timeout checks and backoff sleeps can be
// driven by a fake in tests. Production code uses [SystemClock].
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// NewTimer creates a [Timer] that fires after d.
	NewTimer(d time.Duration) Timer
}

// Timer abstracts [time.Timer] so fake clocks can hand out controllable
// timers. A backoff sleep is a select on [Timer.C] and the caller's context,
// which suspends only the calling goroutine.
type Timer interface {
	// C returns the channel the firing time is delivered on.
	C() <-chan time.Time
	// Stop prevents the timer from firing and reports whether it was stopped
	// before it fired.
	Stop() bool
	// Reset re-arms the timer to fire after d and reports whether it was
	// active before the reset.
	Reset(d time.Duration) bool
}

// SystemClock is a zero-value [Clock] backed by the real [time] package.
// It holds no state and is safe for concurrent use.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t.
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// NewTimer returns a real timer that fires after d.
func (SystemClock) NewTimer(d time.Duration) Timer {
	return &systemTimer{inner: time.NewTimer(d)}
}

type systemTimer struct {
	inner *time.Timer
}

func (t *systemTimer) C() <-chan time.Time        { return t.inner.C }
func (t *systemTimer) Stop() bool                 { return t.inner.Stop() }
func (t *systemTimer) Reset(d time.Duration) bool { return t.inner.Reset(d) }
