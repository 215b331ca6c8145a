package resil

import (
	"testing"
	"time"
)

func TestSystemClockNow(t *testing.T) {
	c := SystemClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Fatalf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestSystemClockSince(t *testing.T) {
	c := SystemClock{}
	start := c.Now()

	// Sleep a tiny bit so Since returns a positive duration.
	time.Sleep(1 * time.Millisecond)

	if elapsed := c.Since(start); elapsed <= 0 {
		t.Fatalf("Since() = %v, want > 0", elapsed)
	}
}

func TestSystemClockNewTimerFires(t *testing.T) {
	c := SystemClock{}
	tmr := c.NewTimer(10 * time.Millisecond)

	select {
	case ts := <-tmr.C():
		if ts.IsZero() {
			t.Fatal("timer fired with zero time")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timer did not fire within 1s")
	}
}

func TestSystemClockNewTimerStop(t *testing.T) {
	c := SystemClock{}
	tmr := c.NewTimer(1 * time.Hour) // will not fire

	if !tmr.Stop() {
		t.Fatal("Stop() = false, want true for unfired timer")
	}
}

func TestSystemClockNewTimerReset(t *testing.T) {
	c := SystemClock{}
	tmr := c.NewTimer(1 * time.Hour)

	tmr.Stop()
	tmr.Reset(10 * time.Millisecond)

	select {
	case ts := <-tmr.C():
		if ts.IsZero() {
			t.Fatal("timer fired with zero time after Reset")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timer did not fire after Reset within 1s")
	}
}
