// Package pull defines Pull, one step of a chunked pull-based stream.
package pull

import (
	"context"
	"errors"
	"sync"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
)

// ErrEnd signals the normal end of a stream. It is not a failure.
var ErrEnd = errors.New("end of stream")

// Pull produces the next chunk of a stream. It returns ErrEnd when the stream
// is exhausted and any other error when it fails. Well-formed pulls never
// return an empty chunk with a nil error.
type Pull[A any] func(ctx context.Context) (chunk.Chunk[A], error)

// IsEnd reports whether err is the end-of-stream signal.
func IsEnd(err error) bool {
	return errors.Is(err, ErrEnd)
}

// Emit is a pull that yields c once and then ends.
func Emit[A any](c chunk.Chunk[A]) Pull[A] {
	done := false
	var mu sync.Mutex
	return func(ctx context.Context) (chunk.Chunk[A], error) {
		mu.Lock()
		defer mu.Unlock()
		if done || c.IsEmpty() {
			done = true
			return chunk.Empty[A](), ErrEnd
		}
		done = true
		return c, nil
	}
}

// End is a pull that is always exhausted.
func End[A any]() Pull[A] {
	return func(context.Context) (chunk.Chunk[A], error) {
		return chunk.Empty[A](), ErrEnd
	}
}

// Fail is a pull that always fails with err.
func Fail[A any](err error) Pull[A] {
	return func(context.Context) (chunk.Chunk[A], error) {
		return chunk.Empty[A](), err
	}
}

// Halt is a pull that always fails with c.
func Halt[A any](c cause.Cause) Pull[A] {
	return Fail[A](c)
}

// Fuse makes termination permanent: once p returns ErrEnd or a failure,
// every later call returns the same error without calling p again.
// Interruptions are not terminal; a cancelled pull may be retried.
func Fuse[A any](p Pull[A]) Pull[A] {
	var (
		mu   sync.Mutex
		term error
	)
	return func(ctx context.Context) (chunk.Chunk[A], error) {
		mu.Lock()
		defer mu.Unlock()
		if term != nil {
			return chunk.Empty[A](), term
		}
		c, err := p(ctx)
		if err != nil && !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			term = err
		}
		return c, err
	}
}

// FromChunks is a pull over a fixed sequence of chunks; empty chunks are
// skipped.
func FromChunks[A any](cs ...chunk.Chunk[A]) Pull[A] {
	var mu sync.Mutex
	i := 0
	return func(context.Context) (chunk.Chunk[A], error) {
		mu.Lock()
		defer mu.Unlock()
		for i < len(cs) {
			c := cs[i]
			i++
			if !c.IsEmpty() {
				return c, nil
			}
		}
		return chunk.Empty[A](), ErrEnd
	}
}
