package chunk_test

import (
	"slices"
	"testing"

	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/stretchr/testify/assert"
)

type ring struct {
	xs []int
}

func (r ring) Len() int     { return len(r.xs) }
func (r ring) At(i int) int { return r.xs[i] }

func TestChunk_Constructors(t *testing.T) {
	assert.True(t, chunk.Empty[int]().IsEmpty())
	assert.Equal(t, 0, chunk.Of[int]().Len())
	assert.Equal(t, []int{7}, chunk.Single(7).ToSlice())
	assert.Equal(t, []byte("hi"), chunk.FromBytes([]byte("hi")).ToSlice())
	assert.Equal(t, []int{1, 2, 3}, chunk.FromSeq(slices.Values([]int{1, 2, 3})).ToSlice())
	assert.Equal(t, []int{4, 5}, chunk.FromIndexed[int](ring{xs: []int{4, 5}}).ToSlice())
}

func TestChunk_FromSliceCopies(t *testing.T) {
	xs := []int{1, 2, 3}
	c := chunk.FromSlice(xs)
	xs[0] = 100
	assert.Equal(t, []int{1, 2, 3}, c.ToSlice())
}

func TestChunk_Get(t *testing.T) {
	c := chunk.Of(1, 2).Concat(chunk.Single(3)).Concat(chunk.Of(4, 5))
	for i, want := range []int{1, 2, 3, 4, 5} {
		got, ok := c.Get(i)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := c.Get(5)
	assert.False(t, ok)
	_, ok = c.Get(-1)
	assert.False(t, ok)

	h, _ := c.Head()
	l, _ := c.Last()
	assert.Equal(t, 1, h)
	assert.Equal(t, 5, l)
}

func TestChunk_ConcatKeepsOrderAcrossDeepTrees(t *testing.T) {
	c := chunk.Empty[int]()
	want := make([]int, 0, 1000)
	for i := 0; i < 1000; i++ {
		c = c.Concat(chunk.Single(i))
		want = append(want, i)
	}
	assert.Equal(t, 1000, c.Len())
	assert.Equal(t, want, c.ToSlice())
	assert.Equal(t, want[500:510], c.Slice(500, 510).ToSlice())
}

func TestChunk_Slicing(t *testing.T) {
	c := chunk.Of(1, 2, 3).Concat(chunk.Of(4, 5, 6))

	t.Run("take and drop", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 3, 4}, c.Take(4).ToSlice())
		assert.Equal(t, []int{3, 4, 5, 6}, c.Drop(2).ToSlice())
		assert.Equal(t, []int{5, 6}, c.TakeRight(2).ToSlice())
		assert.True(t, c.Drop(10).IsEmpty())
		assert.Equal(t, c.ToSlice(), c.Take(10).ToSlice())
	})

	t.Run("split", func(t *testing.T) {
		l, r := c.SplitAt(3)
		assert.Equal(t, []int{1, 2, 3}, l.ToSlice())
		assert.Equal(t, []int{4, 5, 6}, r.ToSlice())

		l, r = c.SplitWhere(func(i int) bool { return i == 5 })
		assert.Equal(t, []int{1, 2, 3, 4}, l.ToSlice())
		assert.Equal(t, []int{5, 6}, r.ToSlice())
	})

	t.Run("while", func(t *testing.T) {
		small := func(i int) bool { return i < 3 }
		assert.Equal(t, []int{1, 2}, c.TakeWhile(small).ToSlice())
		assert.Equal(t, []int{3, 4, 5, 6}, c.DropWhile(small).ToSlice())
		assert.True(t, c.DropWhile(func(int) bool { return true }).IsEmpty())
	})

	t.Run("views over external buffers", func(t *testing.T) {
		v := chunk.FromIndexed[int](ring{xs: []int{1, 2, 3, 4, 5}})
		assert.Equal(t, []int{3, 4}, v.Drop(2).Take(2).ToSlice())
	})
}

func TestChunk_Iteration(t *testing.T) {
	c := chunk.Of(1, 2).Concat(chunk.Of(3))
	assert.Equal(t, []int{3, 2, 1}, slices.Collect(c.Backward()))

	var firstTwo []int
	for a := range c.All() {
		if len(firstTwo) == 2 {
			break
		}
		firstTwo = append(firstTwo, a)
	}
	assert.Equal(t, []int{1, 2}, firstTwo)
}

func TestChunk_Transformations(t *testing.T) {
	c := chunk.Of(1, 2, 3, 4)

	assert.Equal(t, []int{2, 4}, c.Filter(func(i int) bool { return i%2 == 0 }).ToSlice())
	assert.Equal(t, []string{"1", "2", "3", "4"}, chunk.Map(c, func(i int) string { return string(rune('0' + i)) }).ToSlice())
	assert.Equal(t, 10, chunk.Fold(c, 0, func(s, i int) int { return s + i }))
	assert.True(t, c.Exists(func(i int) bool { return i == 3 }))
	assert.Equal(t, []int{20, 40}, chunk.Collect(c, func(i int) (int, bool) { return i * 10, i%2 == 0 }).ToSlice())

	sum, running := chunk.MapAccum(c, 0, func(s, i int) (int, int) { return s + i, s + i })
	assert.Equal(t, 10, sum)
	assert.Equal(t, []int{1, 3, 6, 10}, running.ToSlice())

	nested := chunk.Of(chunk.Of(1), chunk.Empty[int](), chunk.Of(2, 3))
	assert.Equal(t, []int{1, 2, 3}, chunk.Flatten(nested).ToSlice())

	indexed := chunk.ZipWithIndexFrom(chunk.Of("a", "b"), 5)
	assert.Equal(t, []chunk.Pair[string, int]{{First: "a", Second: 5}, {First: "b", Second: 6}}, indexed.ToSlice())
	assert.Equal(t, []int{0, 1, 2}, chunk.Of(1, 2).Prepend(0).ToSlice())
	assert.Equal(t, c.ToSlice(), c.Append().Materialize().ToSlice())
}
