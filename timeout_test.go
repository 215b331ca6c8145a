package resil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoTimeoutSuccess(t *testing.T) {
	got, err := DoTimeout(context.Background(), time.Second, func(context.Context) (string, error) {
		return "fast", nil
	}, nil)

	if err != nil {
		t.Fatalf("DoTimeout() error = %v, want nil", err)
	}
	if got != "fast" {
		t.Fatalf("DoTimeout() = %q, want fast", got)
	}
}

func TestDoTimeoutExpires(t *testing.T) {
	var timeoutHooks atomic.Int64
	hooks := &Hooks{
		OnTimeout: func() { timeoutHooks.Add(1) },
	}

	_, err := DoTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, hooks)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("DoTimeout() error = %v, want ErrTimeout", err)
	}
	if got := timeoutHooks.Load(); got != 1 {
		t.Fatalf("OnTimeout called %d times, want 1", got)
	}
}

func TestDoTimeoutPropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")

	_, err := DoTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 0, boom
	}, nil)

	if !errors.Is(err, boom) {
		t.Fatalf("DoTimeout() error = %v, want boom", err)
	}
}

func TestDoTimeoutParentCancellationKeepsIdentity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var err error
	go func() {
		_, err = DoTimeout(ctx, time.Hour, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}, nil)
		close(done)
	}()

	cancel()
	<-done

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DoTimeout() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("parent cancellation must not be reported as ErrTimeout")
	}
}

func TestDoTimeoutAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := DoTimeout(ctx, time.Second, func(context.Context) (int, error) {
		calls++
		return 0, nil
	}, nil)

	if calls != 0 {
		t.Fatalf("operation called %d times on cancelled context, want 0", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DoTimeout() error = %v, want context.Canceled", err)
	}
}
