package stream

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/sink"
)

// drive feeds p into push until the push terminates.
func drive[A, L, Z any](ctx context.Context, p pull.Pull[A], push sink.Push[A, L, Z]) (Z, chunk.Chunk[L], error) {
	var zero Z
	for {
		c, err := p(ctx)
		var step sink.Step[L, Z]
		switch {
		case pull.IsEnd(err):
			step = push(ctx, sink.EndOfInput[A]())
		case err != nil:
			return zero, chunk.Empty[L](), err
		default:
			step = push(ctx, sink.Elems(c))
		}

		switch step := step.(type) {
		case sink.Done[L, Z]:
			return step.Value, step.Leftover, nil
		case sink.Failed[L, Z]:
			return zero, step.Leftover, step.Err
		}
	}
}

// RunManaged consumes s with sk inside the caller's scope.
func RunManaged[A, L, Z any](s Stream[A], sk sink.Sink[A, L, Z]) managed.Managed[Z] {
	return func(ctx context.Context, rm *managed.ReleaseMap) (Z, error) {
		var zero Z
		p, err := s.process(ctx, rm)
		if err != nil {
			return zero, err
		}
		push, err := sk.Acquire()(ctx, rm)
		if err != nil {
			return zero, err
		}
		z, _, err := drive(ctx, p, push)
		return z, err
	}
}

// Run consumes s with sk and releases every resource before returning.
func Run[A, L, Z any](ctx context.Context, s Stream[A], sk sink.Sink[A, L, Z]) (Z, error) {
	return managed.Use(ctx, RunManaged(s, sk), func(_ context.Context, z Z) (Z, error) {
		return z, nil
	})
}

func RunCollect[A any](ctx context.Context, s Stream[A]) ([]A, error) {
	c, err := Run(ctx, s, sink.CollectAll[A]())
	return c.ToSlice(), err
}

func RunDrain[A any](ctx context.Context, s Stream[A]) error {
	_, err := Run(ctx, s, sink.Drain[A]())
	return err
}

func RunCount[A any](ctx context.Context, s Stream[A]) (int64, error) {
	return Run(ctx, s, sink.Count[A]())
}

func ForEach[A any](ctx context.Context, s Stream[A], f func(context.Context, A) error) error {
	_, err := Run(ctx, s, sink.ForEach(f))
	return err
}

func ForEachChunk[A any](ctx context.Context, s Stream[A], f func(context.Context, chunk.Chunk[A]) error) error {
	_, err := Run(ctx, s, sink.ForEachChunk(f))
	return err
}

func Fold[A, S any](ctx context.Context, s Stream[A], z S, f func(S, A) S) (S, error) {
	return Run(ctx, s, sink.FoldLeft(z, f))
}

// Peeled is the result of Peel: what the sink produced and the rest of the
// stream.
type Peeled[A, Z any] struct {
	Value Z
	// Rest starts with the sink's leftover and continues with the remainder
	// of the stream. It shares the peel's scope and can be consumed once.
	Rest Stream[A]
}

// Peel runs sk on the head of s and returns its result together with the
// stream that continues exactly where sk stopped.
func Peel[A, Z any](s Stream[A], sk sink.Sink[A, A, Z]) managed.Managed[Peeled[A, Z]] {
	return func(ctx context.Context, rm *managed.ReleaseMap) (Peeled[A, Z], error) {
		p, err := s.process(ctx, rm)
		if err != nil {
			return Peeled[A, Z]{}, err
		}
		push, err := sk.Acquire()(ctx, rm)
		if err != nil {
			return Peeled[A, Z]{}, err
		}
		z, leftover, err := drive(ctx, p, push)
		if err != nil {
			return Peeled[A, Z]{}, err
		}
		rest := Concat(FromChunk(leftover), FromPull(p))
		return Peeled[A, Z]{Value: z, Rest: rest}, nil
	}
}

type aggregateState[A any] struct {
	pending      chunk.Chunk[A]
	upstreamDone bool
	dirty        bool
	finished     bool
}

// Aggregate repeatedly runs sk over s and emits each result. The leftover of
// one run is fed to the next. After the upstream ends, a final result is
// emitted only if the sink received input since the previous one.
func Aggregate[A, Z any](s Stream[A], sk sink.Sink[A, A, Z]) Stream[Z] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[Z], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}
		r, err := sink.MakeRestartable(sk)(ctx, rm)
		if err != nil {
			return nil, err
		}
		st := &aggregateState[A]{}

		return func(ctx context.Context) (chunk.Chunk[Z], error) {
			for {
				if st.finished {
					return chunk.Empty[Z](), pull.ErrEnd
				}

				var in sink.Input[A]
				switch {
				case !st.pending.IsEmpty():
					in = sink.Elems(st.pending)
					st.pending = chunk.Empty[A]()
				case st.upstreamDone:
					if !st.dirty {
						st.finished = true
						continue
					}
					in = sink.EndOfInput[A]()
				default:
					c, err := upstream(ctx)
					if pull.IsEnd(err) {
						st.upstreamDone = true
						continue
					}
					if err != nil {
						return chunk.Empty[Z](), err
					}
					in = sink.Elems(c)
				}
				if !in.IsEnd() {
					st.dirty = true
				}

				switch step := r.Push(ctx, in).(type) {
				case sink.Failed[A, Z]:
					return chunk.Empty[Z](), step.Err
				case sink.Done[A, Z]:
					if in.IsEnd() {
						st.finished = true
					} else if err := r.Restart(ctx); err != nil {
						return chunk.Empty[Z](), err
					}
					st.dirty = false
					st.pending = step.Leftover
					return chunk.Single(step.Value), nil
				}
			}
		}, nil
	})
}
