package resil

import "golang.org/x/sync/semaphore"

// Bulkhead caps how many calls may be in flight at once, isolating a slow
// dependency so it cannot absorb every worker in the process. Acquisition is
// non-blocking: a full bulkhead rejects rather than queues.
type Bulkhead struct {
	sem   *semaphore.Weighted
	slots int64
	hooks *Hooks
}

// NewBulkhead creates a bulkhead admitting at most maxConcurrent
// simultaneous calls.
func NewBulkhead(maxConcurrent int, hooks *Hooks) *Bulkhead {
	return &Bulkhead{
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		slots: int64(maxConcurrent),
		hooks: hooks,
	}
}

// Acquire claims a slot, returning [ErrBulkheadFull] when none is free.
func (b *Bulkhead) Acquire() error {
	if !b.sem.TryAcquire(1) {
		b.hooks.emitBulkheadFull()
		return ErrBulkheadFull
	}

	return nil
}

// Release frees a slot claimed by a successful [Bulkhead.Acquire].
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}

// Full reports whether every slot is currently in use.
func (b *Bulkhead) Full() bool {
	if !b.sem.TryAcquire(1) {
		return true
	}

	b.sem.Release(1)

	return false
}
