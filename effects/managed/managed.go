package managed

import (
	"context"

	"go.uber.org/multierr"
)

// Managed acquires an A and registers its finalizers in the given map.
type Managed[A any] func(ctx context.Context, rm *ReleaseMap) (A, error)

// Succeed is a Managed with no resources.
func Succeed[A any](a A) Managed[A] {
	return func(context.Context, *ReleaseMap) (A, error) { return a, nil }
}

// Fail is a Managed that fails to acquire.
func Fail[A any](err error) Managed[A] {
	return func(context.Context, *ReleaseMap) (A, error) {
		var zero A
		return zero, err
	}
}

// FromEffect lifts an effect with nothing to release.
func FromEffect[A any](f func(context.Context) (A, error)) Managed[A] {
	return func(ctx context.Context, _ *ReleaseMap) (A, error) { return f(ctx) }
}

// AcquireRelease pairs acquire with release. release is registered only if
// acquire succeeds.
func AcquireRelease[A any](
	acquire func(context.Context) (A, error),
	release func(context.Context, A) error,
) Managed[A] {
	return func(ctx context.Context, rm *ReleaseMap) (A, error) {
		a, err := acquire(ctx)
		if err != nil {
			return a, err
		}
		if _, err := rm.Add(ctx, func(ctx context.Context) error { return release(ctx, a) }); err != nil {
			var zero A
			return zero, err
		}
		return a, nil
	}
}

// AddFinalizer registers f as a resource with no value.
func AddFinalizer(f Finalizer) Managed[struct{}] {
	return func(ctx context.Context, rm *ReleaseMap) (struct{}, error) {
		_, err := rm.Add(ctx, f)
		return struct{}{}, err
	}
}

// Ensuring runs f after all of m's finalizers.
func Ensuring[A any](m Managed[A], f Finalizer) Managed[A] {
	return func(ctx context.Context, rm *ReleaseMap) (A, error) {
		if _, err := rm.Add(ctx, f); err != nil {
			var zero A
			return zero, err
		}
		return m(ctx, rm)
	}
}

func Map[A, B any](m Managed[A], f func(A) B) Managed[B] {
	return func(ctx context.Context, rm *ReleaseMap) (B, error) {
		a, err := m(ctx, rm)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	}
}

func FlatMap[A, B any](m Managed[A], f func(A) Managed[B]) Managed[B] {
	return func(ctx context.Context, rm *ReleaseMap) (B, error) {
		a, err := m(ctx, rm)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)(ctx, rm)
	}
}

// Use acquires m in a fresh scope, runs f, then releases the scope. The
// error of f comes first; finalizer errors are appended.
func Use[A, B any](ctx context.Context, m Managed[A], f func(context.Context, A) (B, error)) (b B, err error) {
	rm := NewReleaseMap()
	defer func() {
		err = multierr.Append(err, rm.ReleaseAll(ctx))
	}()

	a, err := m(ctx, rm)
	if err != nil {
		return b, err
	}
	return f(ctx, a)
}

// Allocate acquires m in a fresh scope and hands the scope's release to the
// caller. On acquisition failure the scope is already released.
func Allocate[A any](ctx context.Context, m Managed[A]) (A, Finalizer, error) {
	rm := NewReleaseMap()
	a, err := m(ctx, rm)
	if err != nil {
		err = multierr.Append(err, rm.ReleaseAll(ctx))
		return a, NoopFinalizer, err
	}
	return a, rm.ReleaseAll, nil
}
