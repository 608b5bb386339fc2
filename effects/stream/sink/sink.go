package sink

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"golang.org/x/exp/constraints"
)

// Sink consumes I, may leave L unconsumed and produces Z.
type Sink[I, L, Z any] struct {
	push managed.Managed[Push[I, L, Z]]
}

// FromPush builds a sink from a scoped push. Termination of the acquired
// push is made permanent.
func FromPush[I, L, Z any](m managed.Managed[Push[I, L, Z]]) Sink[I, L, Z] {
	return Sink[I, L, Z]{push: managed.Map(m, fence[I, L, Z])}
}

// FromFunc builds a sink whose push needs no resources; newPush is called
// once per acquisition so state is never shared between runs.
func FromFunc[I, L, Z any](newPush func() Push[I, L, Z]) Sink[I, L, Z] {
	return FromPush(func(context.Context, *managed.ReleaseMap) (Push[I, L, Z], error) {
		return newPush(), nil
	})
}

// Acquire returns the scoped push of s.
func (s Sink[I, L, Z]) Acquire() managed.Managed[Push[I, L, Z]] {
	return s.push
}

// Option is an optional result.
type Option[A any] struct {
	Value   A
	Present bool
}

func Some[A any](a A) Option[A] {
	return Option[A]{Value: a, Present: true}
}

// Succeed terminates immediately with z, leaving every input over.
func Succeed[I, Z any](z Z) Sink[I, I, Z] {
	return FromFunc(func() Push[I, I, Z] {
		return func(_ context.Context, in Input[I]) Step[I, Z] {
			return Done[I, Z]{Value: z, Leftover: in.Chunk()}
		}
	})
}

// Fail terminates immediately with err, leaving every input over.
func Fail[I, Z any](err error) Sink[I, I, Z] {
	return FromFunc(func() Push[I, I, Z] {
		return func(_ context.Context, in Input[I]) Step[I, Z] {
			return Failed[I, Z]{Err: err, Leftover: in.Chunk()}
		}
	})
}

// FoldChunks folds whole chunks while cont holds.
func FoldChunks[I, S any](z S, cont func(S) bool, f func(S, chunk.Chunk[I]) S) Sink[I, I, S] {
	return FromFunc(func() Push[I, I, S] {
		s := z
		return func(_ context.Context, in Input[I]) Step[I, S] {
			if in.IsEnd() || !cont(s) {
				return Done[I, S]{Value: s, Leftover: in.Chunk()}
			}
			s = f(s, in.Chunk())
			if !cont(s) {
				return Done[I, S]{Value: s, Leftover: chunk.Empty[I]()}
			}
			return More[I, S]{}
		}
	})
}

// Fold folds elements while cont holds. The elements after the one that
// made cont false are left over.
func Fold[I, S any](z S, cont func(S) bool, f func(S, I) S) Sink[I, I, S] {
	return FromFunc(func() Push[I, I, S] {
		s := z
		return func(_ context.Context, in Input[I]) Step[I, S] {
			if in.IsEnd() || !cont(s) {
				return Done[I, S]{Value: s, Leftover: in.Chunk()}
			}
			c := in.Chunk()
			for i, a := range c.Indexed() {
				s = f(s, a)
				if !cont(s) {
					return Done[I, S]{Value: s, Leftover: c.Drop(i + 1)}
				}
			}
			return More[I, S]{}
		}
	})
}

// FoldLeft folds every element until end of input.
func FoldLeft[I, S any](z S, f func(S, I) S) Sink[I, I, S] {
	return Fold(z, func(S) bool { return true }, f)
}

// FoldM folds with an effectful step. A failing step leaves the failing
// element and everything after it over.
func FoldM[I, S any](z S, cont func(S) bool, f func(context.Context, S, I) (S, error)) Sink[I, I, S] {
	return FromFunc(func() Push[I, I, S] {
		s := z
		return func(ctx context.Context, in Input[I]) Step[I, S] {
			if in.IsEnd() || !cont(s) {
				return Done[I, S]{Value: s, Leftover: in.Chunk()}
			}
			c := in.Chunk()
			for i, a := range c.Indexed() {
				next, err := f(ctx, s, a)
				if err != nil {
					return Failed[I, S]{Err: err, Leftover: c.Drop(i)}
				}
				s = next
				if !cont(s) {
					return Done[I, S]{Value: s, Leftover: c.Drop(i + 1)}
				}
			}
			return More[I, S]{}
		}
	})
}

func CollectAll[I any]() Sink[I, I, chunk.Chunk[I]] {
	return FoldChunks(chunk.Empty[I](), func(chunk.Chunk[I]) bool { return true }, chunk.Chunk[I].Concat)
}

// CollectAllN collects the first n elements.
func CollectAllN[I any](n int) Sink[I, I, chunk.Chunk[I]] {
	return FromFunc(func() Push[I, I, chunk.Chunk[I]] {
		acc := chunk.Empty[I]()
		return func(_ context.Context, in Input[I]) Step[I, chunk.Chunk[I]] {
			if in.IsEnd() {
				return Done[I, chunk.Chunk[I]]{Value: acc, Leftover: chunk.Empty[I]()}
			}
			taken, rest := in.Chunk().SplitAt(n - acc.Len())
			acc = acc.Concat(taken)
			if acc.Len() >= n {
				return Done[I, chunk.Chunk[I]]{Value: acc, Leftover: rest}
			}
			return More[I, chunk.Chunk[I]]{}
		}
	})
}

// CollectAllWhile collects elements while pred holds; the first element
// failing pred and everything after it are left over.
func CollectAllWhile[I any](pred func(I) bool) Sink[I, I, chunk.Chunk[I]] {
	return FromFunc(func() Push[I, I, chunk.Chunk[I]] {
		acc := chunk.Empty[I]()
		return func(_ context.Context, in Input[I]) Step[I, chunk.Chunk[I]] {
			if in.IsEnd() {
				return Done[I, chunk.Chunk[I]]{Value: acc, Leftover: chunk.Empty[I]()}
			}
			taken, rest := in.Chunk().SplitWhere(func(i I) bool { return !pred(i) })
			acc = acc.Concat(taken)
			if !rest.IsEmpty() {
				return Done[I, chunk.Chunk[I]]{Value: acc, Leftover: rest}
			}
			return More[I, chunk.Chunk[I]]{}
		}
	})
}

func Count[I any]() Sink[I, I, int64] {
	return FoldChunks(int64(0), func(int64) bool { return true }, func(n int64, c chunk.Chunk[I]) int64 {
		return n + int64(c.Len())
	})
}

type Number interface {
	constraints.Integer | constraints.Float
}

func Sum[N Number]() Sink[N, N, N] {
	return FoldLeft(N(0), func(s, n N) N { return s + n })
}

// Drain consumes and discards everything.
func Drain[I any]() Sink[I, I, struct{}] {
	return FoldChunks(struct{}{}, func(struct{}) bool { return true }, func(s struct{}, _ chunk.Chunk[I]) struct{} {
		return s
	})
}

// ForEachWhile runs f on every element until it reports false; that element
// and the rest are left over.
func ForEachWhile[I any](f func(context.Context, I) (bool, error)) Sink[I, I, struct{}] {
	return FromFunc(func() Push[I, I, struct{}] {
		return func(ctx context.Context, in Input[I]) Step[I, struct{}] {
			if in.IsEnd() {
				return Done[I, struct{}]{Leftover: chunk.Empty[I]()}
			}
			c := in.Chunk()
			for i, a := range c.Indexed() {
				cont, err := f(ctx, a)
				if err != nil {
					return Failed[I, struct{}]{Err: err, Leftover: c.Drop(i)}
				}
				if !cont {
					return Done[I, struct{}]{Leftover: c.Drop(i)}
				}
			}
			return More[I, struct{}]{}
		}
	})
}

func ForEach[I any](f func(context.Context, I) error) Sink[I, I, struct{}] {
	return ForEachWhile(func(ctx context.Context, i I) (bool, error) {
		return true, f(ctx, i)
	})
}

// ForEachChunk runs f on every chunk.
func ForEachChunk[I any](f func(context.Context, chunk.Chunk[I]) error) Sink[I, I, struct{}] {
	return FromFunc(func() Push[I, I, struct{}] {
		return func(ctx context.Context, in Input[I]) Step[I, struct{}] {
			if in.IsEnd() {
				return Done[I, struct{}]{Leftover: chunk.Empty[I]()}
			}
			if err := f(ctx, in.Chunk()); err != nil {
				return Failed[I, struct{}]{Err: err, Leftover: chunk.Empty[I]()}
			}
			return More[I, struct{}]{}
		}
	})
}

// Head takes the first element, if any.
func Head[I any]() Sink[I, I, Option[I]] {
	return FromFunc(func() Push[I, I, Option[I]] {
		return func(_ context.Context, in Input[I]) Step[I, Option[I]] {
			if in.IsEnd() {
				return Done[I, Option[I]]{Leftover: chunk.Empty[I]()}
			}
			if h, ok := in.Chunk().Head(); ok {
				return Done[I, Option[I]]{Value: Some(h), Leftover: in.Chunk().Drop(1)}
			}
			return More[I, Option[I]]{}
		}
	})
}

// Last consumes everything and keeps the last element, if any.
func Last[I any]() Sink[I, I, Option[I]] {
	return FoldChunks(Option[I]{}, func(Option[I]) bool { return true }, func(o Option[I], c chunk.Chunk[I]) Option[I] {
		if l, ok := c.Last(); ok {
			return Some(l)
		}
		return o
	})
}
