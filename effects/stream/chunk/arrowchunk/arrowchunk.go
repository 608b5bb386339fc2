// Package arrowchunk backs chunks with Apache Arrow arrays, so columnar data
// can be streamed without copying it into Go slices.
package arrowchunk

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
)

// Valued is an Arrow array with typed element access, e.g. *array.Int64 or
// *array.String.
type Valued[T any] interface {
	arrow.Array
	Value(i int) T
}

type indexed[T any, Arr Valued[T]] struct {
	arr Arr
}

func (ix indexed[T, Arr]) Len() int   { return ix.arr.Len() }
func (ix indexed[T, Arr]) At(i int) T { return ix.arr.Value(i) }

// FromArray wraps arr without copying. Null slots read as the zero value.
// The chunk is valid as long as arr is not released.
func FromArray[T any, Arr Valued[T]](arr Arr) chunk.Chunk[T] {
	return chunk.FromIndexed[T](indexed[T, Arr]{arr: arr})
}

// Appender is an Arrow builder with typed appends, e.g. *array.Int64Builder.
type Appender[T any] interface {
	array.Builder
	Append(v T)
}

// Build appends every element of c to b and returns the finished array.
// The caller owns the returned array and must release it.
func Build[T any, B Appender[T]](b B, c chunk.Chunk[T]) arrow.Array {
	b.Reserve(c.Len())
	for v := range c.All() {
		b.Append(v)
	}
	return b.NewArray()
}
