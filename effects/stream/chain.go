package stream

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
)

// Chain emits, for every element of s, the whole of f(element). Each inner
// stream is released before the next one is acquired.
func Chain[A, B any](s Stream[A], f func(A) Stream[B]) Stream[B] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[B], error) {
		outer, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}
		outerElements := pull.NewBuffered(outer)
		inner := ref.Make(pull.End[B]())
		finalizer := ref.Make[managed.Finalizer](managed.NoopFinalizer)

		closeInner := func(ctx context.Context) error {
			return finalizer.GetAndSet(managed.NoopFinalizer)(ctx)
		}
		if _, err := rm.Add(ctx, closeInner); err != nil {
			return nil, err
		}

		openInner := func(ctx context.Context, a A) error {
			scope := managed.NewReleaseMap()
			finalizer.Set(scope.ReleaseAll)
			p, err := f(a).process(ctx, scope)
			if err != nil {
				return err
			}
			inner.Set(p)
			return nil
		}

		return func(ctx context.Context) (chunk.Chunk[B], error) {
			for {
				c, err := inner.Get()(ctx)
				if err == nil {
					if !c.IsEmpty() {
						return c, nil
					}
					continue
				}
				if !pull.IsEnd(err) {
					return chunk.Empty[B](), err
				}

				inner.Set(pull.End[B]())
				if err := closeInner(ctx); err != nil {
					return chunk.Empty[B](), err
				}
				a, err := outerElements.PullElement(ctx)
				if err != nil {
					return chunk.Empty[B](), err
				}
				if err := openInner(ctx, a); err != nil {
					return chunk.Empty[B](), err
				}
			}
		}, nil
	})
}

// FlatMap is Chain.
func FlatMap[A, B any](s Stream[A], f func(A) Stream[B]) Stream[B] {
	return Chain(s, f)
}

// Flatten concatenates a stream of streams.
func Flatten[A any](ss Stream[Stream[A]]) Stream[A] {
	return Chain(ss, func(s Stream[A]) Stream[A] { return s })
}

// Concat emits the streams one after another.
func Concat[A any](ss ...Stream[A]) Stream[A] {
	return Flatten(FromSlice(ss))
}
