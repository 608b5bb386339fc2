// Package stream implements Stream, a scoped, chunked, pull-based producer.
//
// A Stream is a description: nothing runs until it is consumed. Consuming it
// acquires its resources in a managed scope, yields a pull.Pull that is
// driven until it ends or fails, and finally releases the scope. Every
// operator preserves the element sequence regardless of how it is chunked.
package stream

import (
	"context"
	"errors"
	"iter"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/queue"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/take"
)

type Stream[A any] struct {
	process managed.Managed[pull.Pull[A]]
}

// FromProcess builds a stream from a scoped pull. The pull is fused, so its
// termination is permanent.
func FromProcess[A any](m managed.Managed[pull.Pull[A]]) Stream[A] {
	return Stream[A]{process: managed.Map(m, pull.Fuse[A])}
}

// Process returns the scoped pull of s.
func (s Stream[A]) Process() managed.Managed[pull.Pull[A]] {
	return s.process
}

// stateful builds a stream whose pull needs no resources; newPull is called
// once per consumption.
func stateful[A any](newPull func(ctx context.Context) (pull.Pull[A], error)) Stream[A] {
	return FromProcess(func(ctx context.Context, _ *managed.ReleaseMap) (pull.Pull[A], error) {
		return newPull(ctx)
	})
}

func Empty[A any]() Stream[A] {
	return Stream[A]{process: managed.Succeed(pull.End[A]())}
}

func Succeed[A any](a A) Stream[A] {
	return FromChunk(chunk.Single(a))
}

func FromChunk[A any](c chunk.Chunk[A]) Stream[A] {
	return stateful(func(context.Context) (pull.Pull[A], error) {
		return pull.Emit(c), nil
	})
}

func FromChunks[A any](cs ...chunk.Chunk[A]) Stream[A] {
	return stateful(func(context.Context) (pull.Pull[A], error) {
		return pull.FromChunks(cs...), nil
	})
}

// FromSlice emits xs as a single chunk.
func FromSlice[A any](xs []A) Stream[A] {
	return FromChunk(chunk.FromSlice(xs))
}

func Of[A any](as ...A) Stream[A] {
	return FromSlice(as)
}

// FromSeq emits seq in chunks of the configured chunk size. The iterator is
// stopped when the stream's scope closes.
func FromSeq[A any](seq iter.Seq[A]) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		next, stop := iter.Pull(seq)
		if _, err := rm.Add(ctx, func(context.Context) error { stop(); return nil }); err != nil {
			return nil, err
		}
		size := chunkSize(ctx)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			buf := make([]A, 0, size)
			for len(buf) < size {
				a, ok := next()
				if !ok {
					break
				}
				buf = append(buf, a)
			}
			if len(buf) == 0 {
				return chunk.Empty[A](), pull.ErrEnd
			}
			return chunk.Unsafe(buf), nil
		}, nil
	})
}

// FromChan emits the values received from ch until it is closed. Each pull
// waits for one value and then takes whatever else is ready, up to the
// configured chunk size.
func FromChan[A any](ch <-chan A) Stream[A] {
	return stateful(func(ctx context.Context) (pull.Pull[A], error) {
		size := chunkSize(ctx)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			var first A
			select {
			case a, ok := <-ch:
				if !ok {
					return chunk.Empty[A](), pull.ErrEnd
				}
				first = a
			case <-ctx.Done():
				return chunk.Empty[A](), ctx.Err()
			}
			buf := append(make([]A, 0, size), first)
			for len(buf) < size {
				select {
				case a, ok := <-ch:
					if !ok {
						return chunk.Unsafe(buf), nil
					}
					buf = append(buf, a)
				default:
					return chunk.Unsafe(buf), nil
				}
			}
			return chunk.Unsafe(buf), nil
		}, nil
	})
}

// FromPull wraps a pull that owns no resources.
func FromPull[A any](p pull.Pull[A]) Stream[A] {
	return FromProcess(managed.Succeed(p))
}

// FromEffect emits the result of f, or fails with its error.
func FromEffect[A any](f func(context.Context) (A, error)) Stream[A] {
	return stateful(func(context.Context) (pull.Pull[A], error) {
		done := false
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			if done {
				return chunk.Empty[A](), pull.ErrEnd
			}
			a, err := f(ctx)
			if err != nil {
				return chunk.Empty[A](), err
			}
			done = true
			return chunk.Single(a), nil
		}, nil
	})
}

func Fail[A any](err error) Stream[A] {
	return Stream[A]{process: managed.Succeed(pull.Fail[A](err))}
}

func Halt[A any](c cause.Cause) Stream[A] {
	return Stream[A]{process: managed.Succeed(pull.Halt[A](c))}
}

// Range emits [start, end) in chunks of the configured chunk size.
func Range(start, end int) Stream[int] {
	return stateful(func(ctx context.Context) (pull.Pull[int], error) {
		size := chunkSize(ctx)
		next := start
		return func(context.Context) (chunk.Chunk[int], error) {
			if next >= end {
				return chunk.Empty[int](), pull.ErrEnd
			}
			n := min(size, end-next)
			buf := make([]int, n)
			for i := range buf {
				buf[i] = next + i
			}
			next += n
			return chunk.Unsafe(buf), nil
		}, nil
	})
}

// Unfold emits the values produced by f until it reports false.
func Unfold[S, A any](s S, f func(S) (A, S, bool)) Stream[A] {
	return UnfoldM(s, func(_ context.Context, s S) (A, S, bool, error) {
		a, next, ok := f(s)
		return a, next, ok, nil
	})
}

// UnfoldM is Unfold with an effectful step.
func UnfoldM[S, A any](s S, f func(context.Context, S) (A, S, bool, error)) Stream[A] {
	return stateful(func(context.Context) (pull.Pull[A], error) {
		state := ref.Make(s)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			a, next, ok, err := f(ctx, state.Get())
			if err != nil {
				return chunk.Empty[A](), err
			}
			if !ok {
				return chunk.Empty[A](), pull.ErrEnd
			}
			state.Set(next)
			return chunk.Single(a), nil
		}, nil
	})
}

// Repeat emits a forever.
func Repeat[A any](a A) Stream[A] {
	c := chunk.Single(a)
	return FromPull(func(ctx context.Context) (chunk.Chunk[A], error) {
		if err := ctx.Err(); err != nil {
			return chunk.Empty[A](), err
		}
		return c, nil
	})
}

// FromQueue emits the elements of q, taking up to maxChunk at a time. The
// stream ends when q is shut down.
func FromQueue[A any](q *queue.Queue[A], maxChunk int) Stream[A] {
	return FromPull(queuePull(q, maxChunk))
}

// FromQueueWithShutdown is FromQueue that shuts q down when the stream's
// scope closes.
func FromQueueWithShutdown[A any](q *queue.Queue[A], maxChunk int) Stream[A] {
	return Ensuring(FromQueue(q, maxChunk), func(context.Context) error {
		q.Shutdown()
		return nil
	})
}

func queuePull[A any](q *queue.Queue[A], maxChunk int) pull.Pull[A] {
	maxChunk = max(maxChunk, 1)
	return func(ctx context.Context) (chunk.Chunk[A], error) {
		first, err := q.Take(ctx)
		if err != nil {
			return chunk.Empty[A](), endOnShutdown(err)
		}
		rest, err := q.TakeUpTo(maxChunk - 1)
		if err != nil {
			return chunk.Single(first), nil
		}
		return chunk.Of(first).Append(rest...), nil
	}
}

// FromTakeQueue replays the takes of q until a terminal one.
func FromTakeQueue[A any](q *queue.Queue[take.Take[A]]) Stream[A] {
	return stateful(func(context.Context) (pull.Pull[A], error) {
		return takeQueuePull(q), nil
	})
}

// FromTakeQueueWithShutdown is FromTakeQueue that shuts q down when the
// stream's scope closes.
func FromTakeQueueWithShutdown[A any](q *queue.Queue[take.Take[A]]) Stream[A] {
	return Ensuring(FromTakeQueue(q), func(context.Context) error {
		q.Shutdown()
		return nil
	})
}

func takeQueuePull[A any](q *queue.Queue[take.Take[A]]) pull.Pull[A] {
	return func(ctx context.Context) (chunk.Chunk[A], error) {
		for {
			t, err := q.Take(ctx)
			if err != nil {
				return chunk.Empty[A](), endOnShutdown(err)
			}
			c, err := take.Unwrap(t)
			if err != nil || !c.IsEmpty() {
				return c, err
			}
		}
	}
}

func endOnShutdown(err error) error {
	if errors.Is(err, queue.ErrShutdown) {
		return pull.ErrEnd
	}
	return err
}

// AcquireRelease emits the acquired resource once and releases it when the
// stream's scope closes.
func AcquireRelease[A any](acquire func(context.Context) (A, error), release func(context.Context, A) error) Stream[A] {
	return FromManaged(managed.AcquireRelease(acquire, release))
}

// FromManaged emits the value of m once; m's resources live as long as the
// stream's scope.
func FromManaged[A any](m managed.Managed[A]) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		a, err := m(ctx, rm)
		if err != nil {
			return nil, err
		}
		return pull.Emit(chunk.Single(a)), nil
	})
}

// Ensuring runs f after the scope of s has been released.
func Ensuring[A any](s Stream[A], f managed.Finalizer) Stream[A] {
	return Stream[A]{process: managed.Ensuring(s.process, f)}
}

// UnwrapManaged builds the stream from the value of m; m's resources live as
// long as the stream's scope.
func UnwrapManaged[R, A any](m managed.Managed[R], f func(R) Stream[A]) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		r, err := m(ctx, rm)
		if err != nil {
			return nil, err
		}
		return f(r).process(ctx, rm)
	})
}
