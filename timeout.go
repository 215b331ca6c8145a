package resil

import (
	"context"
	"time"
)

// DoTimeout executes fn with a deadline of d. If fn does not complete in
// time the derived context is cancelled and [ErrTimeout] is returned;
// cancellation of the parent context keeps its own error identity.
func DoTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error), hooks *Hooks) (T, error) {
	var zero T

	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		val T
		err error
	}

	// Buffered so a late-finishing fn does not leak its goroutine.
	ch := make(chan outcome, 1)

	go func() {
		v, err := fn(timeoutCtx)
		ch <- outcome{val: v, err: err}
	}()

	select {
	case out := <-ch:
		return out.val, out.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		hooks.emitTimeout()

		return zero, ErrTimeout
	}
}
