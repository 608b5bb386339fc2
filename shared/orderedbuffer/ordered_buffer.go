package orderedbuffer

import (
	"errors"
	"sort"
)

var ErrClosedBuffer = errors.New("buffer is closed")

type CompareFunc[T any] func(a, b T) int

// OrderedBoundedBuffer keeps up to maxBufLen values sorted by compare. Once
// full, each insertion evicts the smallest value.
type OrderedBoundedBuffer[T any] struct {
	data      []T
	maxBufLen int
	compare   CompareFunc[T]
	closed    bool
}

func NewOrderedBoundedBuffer[T any](maxBufLen int, cmp CompareFunc[T]) *OrderedBoundedBuffer[T] {
	maxBufLen = max(maxBufLen, 1)
	return &OrderedBoundedBuffer[T]{
		data:      make([]T, 0, maxBufLen+1),
		maxBufLen: maxBufLen,
		compare:   cmp,
	}
}

// Insert adds val and reports the evicted value, if any. Equal values keep
// their insertion order.
func (b *OrderedBoundedBuffer[T]) Insert(val T) (evicted T, ok bool, err error) {
	if b.closed {
		return evicted, false, ErrClosedBuffer
	}

	// 이진 탐색 후 삽입
	idx := sort.Search(len(b.data), func(i int) bool {
		return b.compare(val, b.data[i]) < 0
	})

	b.data = append(b.data, val)
	copy(b.data[idx+1:], b.data[idx:])
	b.data[idx] = val

	if len(b.data) <= b.maxBufLen {
		return evicted, false, nil
	}
	evicted = b.data[0]
	var zero T
	b.data[0] = zero
	b.data = b.data[1:]
	return evicted, true, nil
}

func (b *OrderedBoundedBuffer[T]) Len() int {
	return len(b.data)
}

// Close returns the remaining values in order. Later calls return nothing.
func (b *OrderedBoundedBuffer[T]) Close() []T {
	if b.closed {
		return nil
	}
	b.closed = true
	rest := b.data
	b.data = nil
	return rest
}
