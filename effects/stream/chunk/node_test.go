package chunk

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balanced[A any](n node[A]) bool {
	c, ok := n.(concatNode[A])
	if !ok {
		return true
	}
	diff := c.left.depth() - c.right.depth()
	return diff >= -1 && diff <= 1 && balanced(c.left) && balanced(c.right)
}

func TestConcat_StaysBalanced(t *testing.T) {
	const total = 100_000
	maxDepth := 2*bits.Len(uint(total)) + 2

	t.Run("append", func(t *testing.T) {
		c := Empty[int]()
		for i := 0; i < total; i++ {
			c = c.Append(i)
		}
		require.Equal(t, total, c.Len())
		assert.True(t, balanced(c.n))
		assert.LessOrEqual(t, c.n.depth(), maxDepth)
		for i := 0; i < total; i += 997 {
			v, _ := c.Get(i)
			assert.Equal(t, i, v)
		}
	})

	t.Run("prepend", func(t *testing.T) {
		c := Empty[int]()
		for i := total - 1; i >= 0; i-- {
			c = Single(i).Concat(c)
		}
		assert.True(t, balanced(c.n))
		assert.LessOrEqual(t, c.n.depth(), maxDepth)
		v, _ := c.Get(total - 1)
		assert.Equal(t, total-1, v)
	})

	t.Run("mixed sizes", func(t *testing.T) {
		c := Empty[int]()
		want := make([]int, 0)
		next := 0
		for i := 0; i < 2_000; i++ {
			xs := make([]int, i%70)
			for j := range xs {
				xs[j] = next
				next++
			}
			want = append(want, xs...)
			if i%2 == 0 {
				c = c.Concat(FromSlice(xs))
			} else {
				c = c.Concat(FromSlice(xs).Concat(Empty[int]()))
			}
		}
		assert.True(t, balanced(c.n))
		assert.Equal(t, want, c.ToSlice())
	})
}

func TestConcat_MergesSmallLeaves(t *testing.T) {
	c := Empty[int]()
	for i := 0; i < leafSize; i++ {
		c = c.Append(i)
	}
	assert.Equal(t, 0, c.n.depth())
	assert.Equal(t, 1, c.Append(leafSize).n.depth())
}
