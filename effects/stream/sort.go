package stream

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/on-the-ground/effect_ive_stream/shared/orderedbuffer"
)

// SortWithin reorders elements that arrive at most window positions out of
// order. It holds back window elements and always emits the smallest one
// held; the rest are emitted in order when s ends.
func SortWithin[A any](s Stream[A], window int, cmp func(a, b A) int) Stream[A] {
	return via(s, func(_ context.Context, upstream pull.Pull[A]) pull.Pull[A] {
		buf := orderedbuffer.NewOrderedBoundedBuffer(window, orderedbuffer.CompareFunc[A](cmp))
		flushed := false
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				if flushed {
					return chunk.Empty[A](), pull.ErrEnd
				}
				c, err := upstream(ctx)
				if pull.IsEnd(err) {
					flushed = true
					if rest := buf.Close(); len(rest) > 0 {
						return chunk.Unsafe(rest), nil
					}
					continue
				}
				if err != nil {
					return chunk.Empty[A](), err
				}

				out := make([]A, 0, c.Len())
				for a := range c.All() {
					evicted, ok, err := buf.Insert(a)
					if err != nil {
						return chunk.Empty[A](), err
					}
					if ok {
						out = append(out, evicted)
					}
				}
				if len(out) > 0 {
					return chunk.Unsafe(out), nil
				}
			}
		}
	})
}
