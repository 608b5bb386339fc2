// Package sink implements Sink, the consumer dual of a stream.
//
// A sink is acquired in a managed scope and yields a Push. A push is fed
// chunks and finally EndOfInput; it answers every input with a Step: More
// to ask for further input, Done with a result, or Failed with an error.
// Both terminal steps carry the leftover input the sink did not consume.
package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
)

var (
	// ErrNoTermination is the defect of a push that asked for more input
	// after EndOfInput.
	ErrNoTermination = errors.New("sink did not terminate on end of input")

	// ErrPushAfterDone is the defect of pushing to a terminated restartable
	// sink without restarting it.
	ErrPushAfterDone = errors.New("push after sink terminated")
)

// Input is either a chunk of elements or the end of input.
type Input[I any] struct {
	chunk chunk.Chunk[I]
	end   bool
}

func Elems[I any](c chunk.Chunk[I]) Input[I] {
	return Input[I]{chunk: c}
}

func EndOfInput[I any]() Input[I] {
	return Input[I]{end: true}
}

func (in Input[I]) IsEnd() bool {
	return in.end
}

// Chunk returns the elements of in; it is empty at end of input.
func (in Input[I]) Chunk() chunk.Chunk[I] {
	return in.chunk
}

// Step is More, Done or Failed.
type Step[L, Z any] interface {
	sealedStep(L, Z)
}

type More[L, Z any] struct{}

type Done[L, Z any] struct {
	Value    Z
	Leftover chunk.Chunk[L]
}

type Failed[L, Z any] struct {
	Err      error
	Leftover chunk.Chunk[L]
}

func (More[L, Z]) sealedStep(L, Z)   {}
func (Done[L, Z]) sealedStep(L, Z)   {}
func (Failed[L, Z]) sealedStep(L, Z) {}

// IsTerminal reports whether s is Done or Failed.
func IsTerminal[L, Z any](s Step[L, Z]) bool {
	_, more := s.(More[L, Z])
	return !more
}

// Leftover returns the unconsumed input carried by a terminal step.
func Leftover[L, Z any](s Step[L, Z]) chunk.Chunk[L] {
	switch s := s.(type) {
	case Done[L, Z]:
		return s.Leftover
	case Failed[L, Z]:
		return s.Leftover
	default:
		return chunk.Empty[L]()
	}
}

// Push consumes one input.
type Push[I, L, Z any] func(ctx context.Context, in Input[I]) Step[L, Z]

// fence makes termination permanent and enforces that end of input
// terminates: after a terminal step every call answers the same step again
// without reaching p.
func fence[I, L, Z any](p Push[I, L, Z]) Push[I, L, Z] {
	var (
		mu   sync.Mutex
		last Step[L, Z]
	)
	return func(ctx context.Context, in Input[I]) Step[L, Z] {
		mu.Lock()
		defer mu.Unlock()
		if last != nil {
			return last
		}
		step := p(ctx, in)
		if in.IsEnd() && !IsTerminal(step) {
			step = Failed[L, Z]{Err: cause.Die{Value: ErrNoTermination}, Leftover: chunk.Empty[L]()}
		}
		if IsTerminal(step) && !interrupted(ctx, step) {
			last = step
		}
		return step
	}
}

// interrupted reports whether step failed only because ctx was cancelled, in
// which case the push may be retried.
func interrupted[L, Z any](ctx context.Context, step Step[L, Z]) bool {
	f, ok := step.(Failed[L, Z])
	return ok && ctx.Err() != nil && errors.Is(f.Err, context.Canceled)
}
