package resil

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBulkheadAcquireRelease(t *testing.T) {
	bh := NewBulkhead(2, nil)

	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() 1 = %v, want nil", err)
	}
	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() 2 = %v, want nil", err)
	}
	if err := bh.Acquire(); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("Acquire() 3 = %v, want ErrBulkheadFull", err)
	}

	bh.Release()
	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() after release = %v, want nil", err)
	}
}

func TestBulkheadFull(t *testing.T) {
	bh := NewBulkhead(1, nil)

	if bh.Full() {
		t.Fatal("Full() on fresh bulkhead = true, want false")
	}

	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() = %v, want nil", err)
	}
	if !bh.Full() {
		t.Fatal("Full() with all slots taken = false, want true")
	}

	bh.Release()
	if bh.Full() {
		t.Fatal("Full() after release = true, want false")
	}
}

func TestBulkheadFiresHook(t *testing.T) {
	var fullHooks atomic.Int64
	hooks := &Hooks{
		OnBulkheadFull: func() { fullHooks.Add(1) },
	}

	bh := NewBulkhead(1, hooks)

	_ = bh.Acquire()
	_ = bh.Acquire() // rejected

	if got := fullHooks.Load(); got != 1 {
		t.Fatalf("OnBulkheadFull called %d times, want 1", got)
	}
}

func TestBulkheadConcurrentNeverExceedsSlots(t *testing.T) {
	const slots = 5
	bh := NewBulkhead(slots, nil)

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if bh.Acquire() != nil {
				return
			}
			defer bh.Release()

			n := inFlight.Add(1)
			defer inFlight.Add(-1)

			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
		}()
	}

	wg.Wait()

	if got := peak.Load(); got > slots {
		t.Fatalf("peak concurrency = %d, want <= %d", got, slots)
	}
}
