package stream

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
)

// via builds a stream by transforming the acquired pull of s.
func via[A, B any](s Stream[A], f func(ctx context.Context, upstream pull.Pull[A]) pull.Pull[B]) Stream[B] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[B], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}
		return f(ctx, upstream), nil
	})
}

// MapChunks transforms whole chunks. Empty results are skipped.
func MapChunks[A, B any](s Stream[A], f func(chunk.Chunk[A]) chunk.Chunk[B]) Stream[B] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[B] {
		return func(ctx context.Context) (chunk.Chunk[B], error) {
			for {
				c, err := upstream(ctx)
				if err != nil {
					return chunk.Empty[B](), err
				}
				if out := f(c); !out.IsEmpty() {
					return out, nil
				}
			}
		}
	})
}

func Map[A, B any](s Stream[A], f func(A) B) Stream[B] {
	return MapChunks(s, func(c chunk.Chunk[A]) chunk.Chunk[B] {
		return chunk.Map(c, f)
	})
}

// MapConcat emits every element of f(a) for each a.
func MapConcat[A, B any](s Stream[A], f func(A) chunk.Chunk[B]) Stream[B] {
	return MapChunks(s, func(c chunk.Chunk[A]) chunk.Chunk[B] {
		return chunk.Flatten(chunk.Map(c, f))
	})
}

func Filter[A any](s Stream[A], pred func(A) bool) Stream[A] {
	return MapChunks(s, func(c chunk.Chunk[A]) chunk.Chunk[A] {
		return c.Filter(pred)
	})
}

// Collect maps and filters in one pass.
func Collect[A, B any](s Stream[A], f func(A) (B, bool)) Stream[B] {
	return MapChunks(s, func(c chunk.Chunk[A]) chunk.Chunk[B] {
		return chunk.Collect(c, f)
	})
}

// MapAccum threads a state through the elements. The state is per
// consumption and per element, so chunking is not observable.
func MapAccum[A, S, B any](s Stream[A], init S, f func(S, A) (S, B)) Stream[B] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[B] {
		state := ref.Make(init)
		return func(ctx context.Context) (chunk.Chunk[B], error) {
			c, err := upstream(ctx)
			if err != nil {
				return chunk.Empty[B](), err
			}
			return ref.Modify(state, func(st S) (chunk.Chunk[B], S) {
				next, out := chunk.MapAccum(c, st, f)
				return out, next
			}), nil
		}
	})
}

// ZipWithIndex pairs every element with its position.
func ZipWithIndex[A any](s Stream[A]) Stream[chunk.Pair[A, int]] {
	return MapAccum(s, 0, func(i int, a A) (int, chunk.Pair[A, int]) {
		return i + 1, chunk.Pair[A, int]{First: a, Second: i}
	})
}

// MapM transforms every element with an effect, one element at a time.
func MapM[A, B any](s Stream[A], f func(context.Context, A) (B, error)) Stream[B] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[B] {
		buffered := pull.NewBuffered(upstream)
		return func(ctx context.Context) (chunk.Chunk[B], error) {
			a, err := buffered.PullElement(ctx)
			if err != nil {
				return chunk.Empty[B](), err
			}
			b, err := f(ctx, a)
			if err != nil {
				return chunk.Empty[B](), err
			}
			return chunk.Single(b), nil
		}
	})
}

// FilterM keeps the elements for which the effectful pred holds.
func FilterM[A any](s Stream[A], pred func(context.Context, A) (bool, error)) Stream[A] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		buffered := pull.NewBuffered(upstream)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				a, err := buffered.PullElement(ctx)
				if err != nil {
					return chunk.Empty[A](), err
				}
				keep, err := pred(ctx, a)
				if err != nil {
					return chunk.Empty[A](), err
				}
				if keep {
					return chunk.Single(a), nil
				}
			}
		}
	})
}

// Tap runs f on every element and passes it through.
func Tap[A any](s Stream[A], f func(context.Context, A) error) Stream[A] {
	return MapM(s, func(ctx context.Context, a A) (A, error) {
		return a, f(ctx, a)
	})
}

// Take emits the first n elements.
func Take[A any](s Stream[A], n int) Stream[A] {
	if n <= 0 {
		return Empty[A]()
	}
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		remaining := ref.Make(n)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			if remaining.Get() <= 0 {
				return chunk.Empty[A](), pull.ErrEnd
			}
			c, err := upstream(ctx)
			if err != nil {
				return chunk.Empty[A](), err
			}
			return ref.Modify(remaining, func(r int) (chunk.Chunk[A], int) {
				out := c.Take(r)
				return out, r - out.Len()
			}), nil
		}
	})
}

// TakeWhile emits elements until pred fails.
func TakeWhile[A any](s Stream[A], pred func(A) bool) Stream[A] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		done := ref.Make(false)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				if done.Get() {
					return chunk.Empty[A](), pull.ErrEnd
				}
				c, err := upstream(ctx)
				if err != nil {
					return chunk.Empty[A](), err
				}
				taken := c.TakeWhile(pred)
				if taken.Len() < c.Len() {
					done.Set(true)
				}
				if !taken.IsEmpty() {
					return taken, nil
				}
			}
		}
	})
}

// Drop skips the first n elements.
func Drop[A any](s Stream[A], n int) Stream[A] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		remaining := ref.Make(n)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				c, err := upstream(ctx)
				if err != nil {
					return chunk.Empty[A](), err
				}
				out := ref.Modify(remaining, func(r int) (chunk.Chunk[A], int) {
					return c.Drop(r), max(r-c.Len(), 0)
				})
				if !out.IsEmpty() {
					return out, nil
				}
			}
		}
	})
}

// DropWhile skips elements while pred holds.
func DropWhile[A any](s Stream[A], pred func(A) bool) Stream[A] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		dropping := ref.Make(true)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				c, err := upstream(ctx)
				if err != nil {
					return chunk.Empty[A](), err
				}
				if !dropping.Get() {
					return c, nil
				}
				if rest := c.DropWhile(pred); !rest.IsEmpty() {
					dropping.Set(false)
					return rest, nil
				}
			}
		}
	})
}

type rechunkState[A any] struct {
	buf  chunk.Chunk[A]
	done bool
}

// Rechunk regroups the elements into chunks of exactly n, except for the
// last one.
func Rechunk[A any](s Stream[A], n int) Stream[A] {
	n = max(n, 1)
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		state := ref.Make(rechunkState[A]{})
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				st := state.Get()
				if st.buf.Len() >= n {
					out, rest := st.buf.SplitAt(n)
					state.Set(rechunkState[A]{buf: rest, done: st.done})
					return out.Materialize(), nil
				}
				if st.done {
					if st.buf.IsEmpty() {
						return chunk.Empty[A](), pull.ErrEnd
					}
					state.Set(rechunkState[A]{done: true})
					return st.buf.Materialize(), nil
				}
				c, err := upstream(ctx)
				switch {
				case pull.IsEnd(err):
					state.Set(rechunkState[A]{buf: st.buf, done: true})
				case err != nil:
					return chunk.Empty[A](), err
				default:
					state.Set(rechunkState[A]{buf: st.buf.Concat(c)})
				}
			}
		}
	})
}

// typedFailure extracts the typed failure of err, or nil. Ends, defects and
// interruptions are not typed failures.
func typedFailure(err error) error {
	if err == nil || pull.IsEnd(err) {
		return nil
	}
	c := cause.FromError(err)
	if cause.Interrupted(c) {
		return nil
	}
	for _, leaf := range cause.Leaves(c) {
		if _, ok := leaf.(cause.Die); ok {
			return nil
		}
	}
	if fs := cause.Failures(c); len(fs) > 0 {
		return fs[0]
	}
	return nil
}

// CatchAll switches to h(err) when s fails with a typed failure. The
// resources of s are released before h's stream is acquired.
func CatchAll[A any](s Stream[A], h func(error) Stream[A]) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		scope, err := rm.Fork(ctx)
		if err != nil {
			return nil, err
		}
		current, err := s.process(ctx, scope)
		if err != nil {
			return nil, err
		}
		switched := false
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			c, err := current(ctx)
			if err == nil || switched {
				return c, err
			}
			failure := typedFailure(err)
			if failure == nil {
				return c, err
			}
			switched = true
			if err := scope.ReleaseAll(ctx); err != nil {
				return chunk.Empty[A](), err
			}
			if scope, err = rm.Fork(ctx); err != nil {
				return chunk.Empty[A](), err
			}
			if current, err = h(failure).process(ctx, scope); err != nil {
				return chunk.Empty[A](), err
			}
			return current(ctx)
		}, nil
	})
}

// OrElse switches to that when s fails with a typed failure.
func OrElse[A any](s, that Stream[A]) Stream[A] {
	return CatchAll(s, func(error) Stream[A] { return that })
}

// MapError transforms typed failures of s.
func MapError[A any](s Stream[A], f func(error) error) Stream[A] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			c, err := upstream(ctx)
			if failure := typedFailure(err); failure != nil {
				return c, f(failure)
			}
			return c, err
		}
	})
}
