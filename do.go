package resil

import "context"

// Do wraps a single call with resilience patterns without creating a named
// [Policy]. The anonymous policy is built per call and never registered with
// a [Registry]; for hot paths, build the policy once with [NewPolicy].
func Do[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...any) (T, error) {
	p, err := NewPolicy[T]("", opts...)
	if err != nil {
		var zero T
		return zero, err
	}

	return p.Do(ctx, fn)
}
