package ref_test

import (
	"sync"
	"testing"

	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/stretchr/testify/assert"
)

func TestRef_Basics(t *testing.T) {
	r := ref.Make(1)
	assert.Equal(t, 1, r.Get())

	r.Set(2)
	assert.Equal(t, 2, r.GetAndSet(3))
	assert.Equal(t, 4, r.UpdateAndGet(func(i int) int { return i + 1 }))

	r.Update(func(i int) int { return i * 10 })
	assert.Equal(t, 40, r.Get())
}

func TestModify_ReturnsResultAndStoresNext(t *testing.T) {
	r := ref.Make([]int{1, 2, 3})
	head := ref.Modify(r, func(xs []int) (int, []int) { return xs[0], xs[1:] })
	assert.Equal(t, 1, head)
	assert.Equal(t, []int{2, 3}, r.Get())
}

func TestModify_IsAtomicUnderContention(t *testing.T) {
	r := ref.Make(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ref.Modify(r, func(n int) (struct{}, int) { return struct{}{}, n + 1 })
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5000, r.Get())
}
