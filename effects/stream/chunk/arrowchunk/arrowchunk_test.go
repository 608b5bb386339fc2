package arrowchunk_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk/arrowchunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromArray_Int64(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{1, 2, 3, 4}, nil)
	arr := b.NewInt64Array()
	defer arr.Release()

	c := arrowchunk.FromArray[int64](arr)
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []int64{2, 3}, c.Drop(1).Take(2).ToSlice())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, c.Append(5).ToSlice())
}

func TestFromArray_String(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues([]string{"a", "b"}, nil)
	arr := b.NewStringArray()
	defer arr.Release()

	assert.Equal(t, []string{"a", "b"}, arrowchunk.FromArray[string](arr).ToSlice())
}

func TestBuild_RoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewInt64Builder(mem)
	defer b.Release()

	arr := arrowchunk.Build[int64](b, chunk.Of[int64](10, 20).Concat(chunk.Single[int64](30)))
	defer arr.Release()

	ints, ok := arr.(*array.Int64)
	require.True(t, ok)
	assert.Equal(t, []int64{10, 20, 30}, ints.Int64Values())
}
