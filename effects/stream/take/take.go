// Package take reifies the outcome of one pull so that it can be stored in a
// queue and replayed on the other side.
package take

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
)

// Take is Value, Halt or End.
type Take[A any] interface {
	sealedTake(A)
}

// Value carries a chunk of elements.
type Value[A any] struct {
	Chunk chunk.Chunk[A]
}

// Halt carries the cause of a failure.
type Halt[A any] struct {
	Cause cause.Cause
}

// End marks the end of the stream.
type End[A any] struct{}

func (Value[A]) sealedTake(A) {}
func (Halt[A]) sealedTake(A)  {}
func (End[A]) sealedTake(A)   {}

func Chunk[A any](c chunk.Chunk[A]) Take[A] {
	return Value[A]{Chunk: c}
}

func Single[A any](a A) Take[A] {
	return Value[A]{Chunk: chunk.Single(a)}
}

// Fail reifies err as a Halt.
func Fail[A any](err error) Take[A] {
	return Halt[A]{Cause: cause.FromError(err)}
}

func Die[A any](c cause.Cause) Take[A] {
	return Halt[A]{Cause: c}
}

func EndOf[A any]() Take[A] {
	return End[A]{}
}

// FromPull runs p once and captures its outcome. A panic in p is captured
// as a Die.
func FromPull[A any](ctx context.Context, p pull.Pull[A]) Take[A] {
	return FromResult(cause.Catch(func() (chunk.Chunk[A], error) {
		return p(ctx)
	}))
}

// FromResult captures the outcome of a pull that already ran.
func FromResult[A any](c chunk.Chunk[A], err error) Take[A] {
	switch {
	case err == nil:
		return Value[A]{Chunk: c}
	case pull.IsEnd(err):
		return End[A]{}
	default:
		return Halt[A]{Cause: cause.FromError(err)}
	}
}

// Unwrap converts t back into the result of a pull.
func Unwrap[A any](t Take[A]) (chunk.Chunk[A], error) {
	switch t := t.(type) {
	case Value[A]:
		return t.Chunk, nil
	case Halt[A]:
		return chunk.Empty[A](), t.Cause
	default:
		return chunk.Empty[A](), pull.ErrEnd
	}
}

// IsTerminal reports whether t is Halt or End.
func IsTerminal[A any](t Take[A]) bool {
	_, ok := t.(Value[A])
	return !ok
}

// Map transforms the elements of a Value take.
func Map[A, B any](t Take[A], f func(A) B) Take[B] {
	switch t := t.(type) {
	case Value[A]:
		return Value[B]{Chunk: chunk.Map(t.Chunk, f)}
	case Halt[A]:
		return Halt[B]{Cause: t.Cause}
	default:
		return End[B]{}
	}
}

// Fold eliminates t.
func Fold[A, Z any](t Take[A], onEnd func() Z, onHalt func(cause.Cause) Z, onValue func(chunk.Chunk[A]) Z) Z {
	switch t := t.(type) {
	case Value[A]:
		return onValue(t.Chunk)
	case Halt[A]:
		return onHalt(t.Cause)
	default:
		return onEnd()
	}
}
