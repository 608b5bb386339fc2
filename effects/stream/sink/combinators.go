package sink

import (
	"context"
	"sync/atomic"

	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"golang.org/x/sync/errgroup"
)

func mapPush[I, L, Z any, I2, L2, Z2 any](
	s Sink[I, L, Z],
	in func(Input[I2]) Input[I],
	out func(Step[L, Z]) Step[L2, Z2],
) Sink[I2, L2, Z2] {
	return FromPush(managed.Map(s.push, func(p Push[I, L, Z]) Push[I2, L2, Z2] {
		return func(ctx context.Context, i Input[I2]) Step[L2, Z2] {
			return out(p(ctx, in(i)))
		}
	}))
}

func sameInput[I any](in Input[I]) Input[I] { return in }

// Map transforms the result of s.
func Map[I, L, Z, Z2 any](s Sink[I, L, Z], f func(Z) Z2) Sink[I, L, Z2] {
	return mapPush(s, sameInput[I], func(step Step[L, Z]) Step[L, Z2] {
		switch step := step.(type) {
		case Done[L, Z]:
			return Done[L, Z2]{Value: f(step.Value), Leftover: step.Leftover}
		case Failed[L, Z]:
			return Failed[L, Z2]{Err: step.Err, Leftover: step.Leftover}
		default:
			return More[L, Z2]{}
		}
	})
}

// MapError transforms the failure of s.
func MapError[I, L, Z any](s Sink[I, L, Z], f func(error) error) Sink[I, L, Z] {
	return mapPush(s, sameInput[I], func(step Step[L, Z]) Step[L, Z] {
		if failed, ok := step.(Failed[L, Z]); ok {
			return Failed[L, Z]{Err: f(failed.Err), Leftover: failed.Leftover}
		}
		return step
	})
}

func sameStep[L, Z any](s Step[L, Z]) Step[L, Z] { return s }

// ContramapChunks transforms every input chunk before it reaches s.
func ContramapChunks[I, I2, L, Z any](s Sink[I, L, Z], f func(chunk.Chunk[I2]) chunk.Chunk[I]) Sink[I2, L, Z] {
	return mapPush(s, func(in Input[I2]) Input[I] {
		if in.IsEnd() {
			return EndOfInput[I]()
		}
		return Elems(f(in.Chunk()))
	}, sameStep[L, Z])
}

// Contramap transforms every input element before it reaches s.
func Contramap[I, I2, L, Z any](s Sink[I, L, Z], f func(I2) I) Sink[I2, L, Z] {
	return ContramapChunks(s, func(c chunk.Chunk[I2]) chunk.Chunk[I] {
		return chunk.Map(c, f)
	})
}

type zipState[L, Z1, Z2 any] interface {
	sealedZipState(L, Z1, Z2)
}

type bothRunning[L, Z1, Z2 any] struct{}

type leftDone[L, Z1, Z2 any] struct {
	z Z1
}

type rightDone[L, Z1, Z2 any] struct {
	z Z2
}

func (bothRunning[L, Z1, Z2]) sealedZipState(L, Z1, Z2) {}
func (leftDone[L, Z1, Z2]) sealedZipState(L, Z1, Z2)    {}
func (rightDone[L, Z1, Z2]) sealedZipState(L, Z1, Z2)   {}

// ZipWithPar feeds every input to both sinks concurrently and combines their
// results with f. Once one side is done, input only goes to the other side.
// When both finish on the same input the shorter leftover is kept, since it
// is what both sides left unconsumed. If either side fails, the other is
// cancelled and the zipped sink fails.
func ZipWithPar[I, L, Z1, Z2, Z any](left Sink[I, L, Z1], right Sink[I, L, Z2], f func(Z1, Z2) Z) Sink[I, L, Z] {
	return FromPush(func(ctx context.Context, rm *managed.ReleaseMap) (Push[I, L, Z], error) {
		pl, err := left.push(ctx, rm)
		if err != nil {
			return nil, err
		}
		pr, err := right.push(ctx, rm)
		if err != nil {
			return nil, err
		}
		state := ref.Make[zipState[L, Z1, Z2]](bothRunning[L, Z1, Z2]{})

		return func(ctx context.Context, in Input[I]) Step[L, Z] {
			switch st := state.Get().(type) {
			case leftDone[L, Z1, Z2]:
				switch step := pr(ctx, in).(type) {
				case Done[L, Z2]:
					return Done[L, Z]{Value: f(st.z, step.Value), Leftover: step.Leftover}
				case Failed[L, Z2]:
					return Failed[L, Z]{Err: step.Err, Leftover: step.Leftover}
				default:
					return More[L, Z]{}
				}
			case rightDone[L, Z1, Z2]:
				switch step := pl(ctx, in).(type) {
				case Done[L, Z1]:
					return Done[L, Z]{Value: f(step.Value, st.z), Leftover: step.Leftover}
				case Failed[L, Z1]:
					return Failed[L, Z]{Err: step.Err, Leftover: step.Leftover}
				default:
					return More[L, Z]{}
				}
			}

			var (
				ls     Step[L, Z1]
				rs     Step[L, Z2]
				failed atomic.Int32
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				ls = pl(gctx, in)
				if step, ok := ls.(Failed[L, Z1]); ok {
					failed.CompareAndSwap(0, 1)
					return step.Err
				}
				return nil
			})
			g.Go(func() error {
				rs = pr(gctx, in)
				if step, ok := rs.(Failed[L, Z2]); ok {
					failed.CompareAndSwap(0, 2)
					return step.Err
				}
				return nil
			})
			if g.Wait() != nil {
				if failed.Load() == 1 {
					step := ls.(Failed[L, Z1])
					return Failed[L, Z]{Err: step.Err, Leftover: step.Leftover}
				}
				step := rs.(Failed[L, Z2])
				return Failed[L, Z]{Err: step.Err, Leftover: step.Leftover}
			}

			switch l := ls.(type) {
			case Done[L, Z1]:
				if r, ok := rs.(Done[L, Z2]); ok {
					return Done[L, Z]{Value: f(l.Value, r.Value), Leftover: shorter(l.Leftover, r.Leftover)}
				}
				state.Set(leftDone[L, Z1, Z2]{z: l.Value})
			default:
				if r, ok := rs.(Done[L, Z2]); ok {
					state.Set(rightDone[L, Z1, Z2]{z: r.Value})
				}
			}
			return More[L, Z]{}
		}, nil
	})
}

func shorter[L any](a, b chunk.Chunk[L]) chunk.Chunk[L] {
	if a.Len() <= b.Len() {
		return a
	}
	return b
}

// ZipPar runs both sinks concurrently and pairs their results.
func ZipPar[I, L, Z1, Z2 any](left Sink[I, L, Z1], right Sink[I, L, Z2]) Sink[I, L, chunk.Pair[Z1, Z2]] {
	return ZipWithPar(left, right, func(z1 Z1, z2 Z2) chunk.Pair[Z1, Z2] {
		return chunk.Pair[Z1, Z2]{First: z1, Second: z2}
	})
}
