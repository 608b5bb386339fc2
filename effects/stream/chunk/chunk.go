// Package chunk implements Chunk, the immutable batch of values that streams
// move around.
//
// Chunks are persistent: every operation returns a new chunk and shares
// structure with its input. Concatenation builds a balanced tree and small
// adjacent leaves are merged, so repeated appends stay cheap.
package chunk

import (
	"iter"
	"slices"
)

const leafSize = 32

// Chunk is an immutable ordered sequence. The zero value is empty.
type Chunk[A any] struct {
	n node[A]
}

// Indexed is an external random-access buffer a chunk can be backed by.
type Indexed[A any] interface {
	Len() int
	At(i int) A
}

func Empty[A any]() Chunk[A] {
	return Chunk[A]{}
}

func Single[A any](a A) Chunk[A] {
	return Chunk[A]{n: singleNode[A]{a: a}}
}

func Of[A any](as ...A) Chunk[A] {
	return FromSlice(as)
}

// FromSlice copies xs into a new chunk.
func FromSlice[A any](xs []A) Chunk[A] {
	if len(xs) == 0 {
		return Chunk[A]{}
	}
	return Chunk[A]{n: arrayNode[A]{xs: slices.Clone(xs)}}
}

// Unsafe wraps xs without copying. The caller must not modify xs afterwards.
func Unsafe[A any](xs []A) Chunk[A] {
	if len(xs) == 0 {
		return Chunk[A]{}
	}
	return Chunk[A]{n: arrayNode[A]{xs: xs[:len(xs):len(xs)]}}
}

// FromIndexed wraps an external buffer without copying.
func FromIndexed[A any](buf Indexed[A]) Chunk[A] {
	if buf.Len() == 0 {
		return Chunk[A]{}
	}
	return Chunk[A]{n: viewNode[A]{under: buf, n: buf.Len()}}
}

// FromBytes copies b into a byte chunk.
func FromBytes(b []byte) Chunk[byte] {
	return FromSlice(b)
}

// FromSeq collects seq into a chunk.
func FromSeq[A any](seq iter.Seq[A]) Chunk[A] {
	return Unsafe(slices.Collect(seq))
}

func (c Chunk[A]) Len() int {
	if c.n == nil {
		return 0
	}
	return c.n.length()
}

func (c Chunk[A]) IsEmpty() bool {
	return c.n == nil
}

// Get returns the element at i; ok is false when i is out of range.
func (c Chunk[A]) Get(i int) (a A, ok bool) {
	if i < 0 || i >= c.Len() {
		return a, false
	}
	return c.n.get(i), true
}

func (c Chunk[A]) Head() (A, bool) {
	return c.Get(0)
}

func (c Chunk[A]) Last() (A, bool) {
	return c.Get(c.Len() - 1)
}

// All iterates the elements in order.
func (c Chunk[A]) All() iter.Seq[A] {
	return func(yield func(A) bool) {
		if c.n != nil {
			c.n.each(yield)
		}
	}
}

// Indexed iterates (index, element) pairs in order.
func (c Chunk[A]) Indexed() iter.Seq2[int, A] {
	return func(yield func(int, A) bool) {
		i := 0
		for a := range c.All() {
			if !yield(i, a) {
				return
			}
			i++
		}
	}
}

// Backward iterates the elements in reverse order.
func (c Chunk[A]) Backward() iter.Seq[A] {
	return func(yield func(A) bool) {
		for i := c.Len() - 1; i >= 0; i-- {
			if !yield(c.n.get(i)) {
				return
			}
		}
	}
}

// ToSlice returns a fresh slice with the elements of c.
func (c Chunk[A]) ToSlice() []A {
	out := make([]A, 0, c.Len())
	for a := range c.All() {
		out = append(out, a)
	}
	return out
}

// Concat returns c followed by other.
func (c Chunk[A]) Concat(other Chunk[A]) Chunk[A] {
	return Chunk[A]{n: concat(c.n, other.n)}
}

// Append returns c followed by as.
func (c Chunk[A]) Append(as ...A) Chunk[A] {
	return c.Concat(FromSlice(as))
}

// Prepend returns a followed by c.
func (c Chunk[A]) Prepend(a A) Chunk[A] {
	return Single(a).Concat(c)
}

func (c Chunk[A]) Slice(from, to int) Chunk[A] {
	from = max(from, 0)
	to = min(to, c.Len())
	if c.n == nil || from >= to {
		return Chunk[A]{}
	}
	return Chunk[A]{n: slice(c.n, from, to)}
}

// Take keeps the first n elements.
func (c Chunk[A]) Take(n int) Chunk[A] {
	return c.Slice(0, n)
}

// Drop removes the first n elements.
func (c Chunk[A]) Drop(n int) Chunk[A] {
	return c.Slice(n, c.Len())
}

// TakeRight keeps the last n elements.
func (c Chunk[A]) TakeRight(n int) Chunk[A] {
	return c.Drop(c.Len() - n)
}

func (c Chunk[A]) SplitAt(n int) (Chunk[A], Chunk[A]) {
	return c.Take(n), c.Drop(n)
}

// IndexWhere returns the index of the first element satisfying pred, or -1.
func (c Chunk[A]) IndexWhere(pred func(A) bool) int {
	for i, a := range c.Indexed() {
		if pred(a) {
			return i
		}
	}
	return -1
}

func (c Chunk[A]) TakeWhile(pred func(A) bool) Chunk[A] {
	if i := c.IndexWhere(func(a A) bool { return !pred(a) }); i >= 0 {
		return c.Take(i)
	}
	return c
}

func (c Chunk[A]) DropWhile(pred func(A) bool) Chunk[A] {
	if i := c.IndexWhere(func(a A) bool { return !pred(a) }); i >= 0 {
		return c.Drop(i)
	}
	return Chunk[A]{}
}

// SplitWhere splits before the first element satisfying pred.
func (c Chunk[A]) SplitWhere(pred func(A) bool) (Chunk[A], Chunk[A]) {
	if i := c.IndexWhere(pred); i >= 0 {
		return c.SplitAt(i)
	}
	return c, Chunk[A]{}
}

func (c Chunk[A]) Filter(pred func(A) bool) Chunk[A] {
	out := make([]A, 0, c.Len())
	for a := range c.All() {
		if pred(a) {
			out = append(out, a)
		}
	}
	return Unsafe(out)
}

func (c Chunk[A]) Exists(pred func(A) bool) bool {
	return c.IndexWhere(pred) >= 0
}

// Materialize flattens c into a single array node.
func (c Chunk[A]) Materialize() Chunk[A] {
	if c.n == nil {
		return c
	}
	return Chunk[A]{n: flatten(c.n)}
}

func Map[A, B any](c Chunk[A], f func(A) B) Chunk[B] {
	out := make([]B, 0, c.Len())
	for a := range c.All() {
		out = append(out, f(a))
	}
	return Unsafe(out)
}

// Collect maps and filters in one pass: elements for which f reports false
// are dropped.
func Collect[A, B any](c Chunk[A], f func(A) (B, bool)) Chunk[B] {
	out := make([]B, 0, c.Len())
	for a := range c.All() {
		if b, ok := f(a); ok {
			out = append(out, b)
		}
	}
	return Unsafe(out)
}

func Fold[A, S any](c Chunk[A], s S, f func(S, A) S) S {
	for a := range c.All() {
		s = f(s, a)
	}
	return s
}

// MapAccum threads a state through the elements, emitting one output each.
func MapAccum[A, S, B any](c Chunk[A], s S, f func(S, A) (S, B)) (S, Chunk[B]) {
	out := make([]B, 0, c.Len())
	for a := range c.All() {
		var b B
		s, b = f(s, a)
		out = append(out, b)
	}
	return s, Unsafe(out)
}

// Flatten concatenates a chunk of chunks.
func Flatten[A any](cs Chunk[Chunk[A]]) Chunk[A] {
	return Fold(cs, Empty[A](), Chunk[A].Concat)
}

type Pair[A, B any] struct {
	First  A
	Second B
}

// ZipWithIndexFrom pairs every element with its index, starting at from.
func ZipWithIndexFrom[A any](c Chunk[A], from int) Chunk[Pair[A, int]] {
	out := make([]Pair[A, int], 0, c.Len())
	for i, a := range c.Indexed() {
		out = append(out, Pair[A, int]{First: a, Second: from + i})
	}
	return Unsafe(out)
}
