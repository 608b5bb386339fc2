package pull

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
)

type cursor[A any] struct {
	c    chunk.Chunk[A]
	i    int
	done bool
}

// Buffered is a cursor over a Pull that hands out single elements or the
// unconsumed rest of the current chunk.
type Buffered[A any] struct {
	upstream Pull[A]
	state    *ref.Ref[cursor[A]]
}

func NewBuffered[A any](upstream Pull[A]) *Buffered[A] {
	return &Buffered[A]{
		upstream: upstream,
		state:    ref.Make(cursor[A]{}),
	}
}

// IfNotDone runs p unless the upstream has ended, in which case it returns
// ErrEnd.
func IfNotDone[A, B any](ctx context.Context, b *Buffered[A], p func(context.Context) (B, error)) (B, error) {
	if b.state.Get().done {
		var zero B
		return zero, ErrEnd
	}
	return p(ctx)
}

// refill pulls the next non-empty chunk. Upstream termination marks the
// cursor done and is returned.
func (b *Buffered[A]) refill(ctx context.Context) error {
	for {
		c, err := b.upstream(ctx)
		if err != nil {
			if IsEnd(err) {
				b.state.Set(cursor[A]{done: true})
			}
			return err
		}
		if !c.IsEmpty() {
			b.state.Set(cursor[A]{c: c})
			return nil
		}
	}
}

// PullElement returns the next element, refilling from upstream when the
// current chunk is exhausted.
func (b *Buffered[A]) PullElement(ctx context.Context) (A, error) {
	var zero A
	for {
		a, ok, done := ref.Modify(b.state, func(cur cursor[A]) (elementStep[A], cursor[A]) {
			if cur.done {
				return elementStep[A]{done: true}, cur
			}
			if a, ok := cur.c.Get(cur.i); ok {
				cur.i++
				return elementStep[A]{a: a, ok: true}, cur
			}
			return elementStep[A]{}, cur
		}).unpack()
		if done {
			return zero, ErrEnd
		}
		if ok {
			return a, nil
		}
		if err := b.refill(ctx); err != nil {
			return zero, err
		}
	}
}

type elementStep[A any] struct {
	a        A
	ok, done bool
}

func (s elementStep[A]) unpack() (A, bool, bool) { return s.a, s.ok, s.done }

// PullChunk returns the unconsumed remainder of the current chunk, or the
// next upstream chunk when nothing remains.
func (b *Buffered[A]) PullChunk(ctx context.Context) (chunk.Chunk[A], error) {
	for {
		rest, done := ref.Modify(b.state, func(cur cursor[A]) (chunkStep[A], cursor[A]) {
			if cur.done {
				return chunkStep[A]{done: true}, cur
			}
			rest := cur.c.Drop(cur.i)
			return chunkStep[A]{rest: rest}, cursor[A]{}
		}).unpack()
		if done {
			return chunk.Empty[A](), ErrEnd
		}
		if !rest.IsEmpty() {
			return rest, nil
		}
		if err := b.refill(ctx); err != nil {
			return chunk.Empty[A](), err
		}
	}
}

type chunkStep[A any] struct {
	rest chunk.Chunk[A]
	done bool
}

func (s chunkStep[A]) unpack() (chunk.Chunk[A], bool) { return s.rest, s.done }

// AsPull exposes b as a Pull of chunks.
func (b *Buffered[A]) AsPull() Pull[A] {
	return b.PullChunk
}
