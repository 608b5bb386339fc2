package binding_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/on-the-ground/effect_ive_stream/effects"
	"github.com/on-the-ground/effect_ive_stream/effects/binding"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingEffect_BasicLookup(t *testing.T) {
	ctx := context.Background()

	ctx, endOfLogHandler := log.WithTestLogEffectHandler(ctx)
	defer endOfLogHandler()

	ctx, closeFn := binding.WithEffectHandler(
		ctx,
		effects.NewEffectScopeConfig(1, 1),
		map[string]any{
			"foo": 123,
		},
	)
	defer closeFn()

	v, err := binding.Effect(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, 123, v)
}

func TestBindingEffect_KeyNotFound(t *testing.T) {
	ctx := context.Background()
	ctx, closeFn := binding.WithEffectHandler(
		ctx,
		effects.NewEffectScopeConfig(1, 1),
		map[string]any{
			"foo": 123,
		},
	)
	defer closeFn()

	_, err := binding.Effect(ctx, "bar")
	assert.ErrorIs(t, err, binding.ErrKeyNotFound)
}

func TestBindingEffect_NoHandler(t *testing.T) {
	_, err := binding.Effect(context.Background(), "foo")
	assert.ErrorIs(t, err, effects.ErrNoEffectHandler)

	assert.Equal(t, 64, binding.LookupOr(context.Background(), "foo", 64))
}

func TestBindingEffect_DelegatesToUpperScope(t *testing.T) {
	ctx := context.Background()

	upperCtx, upperClose := binding.WithEffectHandler(
		ctx,
		effects.NewEffectScopeConfig(1, 1),
		map[string]any{
			"upper": "delegated",
		},
	)
	defer upperClose()

	lowerCtx, lowerClose := binding.WithEffectHandler(
		upperCtx,
		effects.NewEffectScopeConfig(1, 1),
		map[string]any{
			"lower": 1,
		},
	)
	defer lowerClose()

	v, err := binding.Lookup[string](lowerCtx, "upper")
	require.NoError(t, err)
	assert.Equal(t, "delegated", v)

	_, err = binding.Lookup[string](lowerCtx, "lower")
	assert.ErrorContains(t, err, "unexpected type: int")
}

func TestBindingEffect_ConcurrentPartitionedAccess(t *testing.T) {
	ctx := context.Background()

	// prepare key-value map
	bindings := make(map[string]any)
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key%d", i)
		bindings[key] = fmt.Sprintf("value%d", i)
	}

	// register the binding handler with partitioning
	ctx, cancel := binding.WithEffectHandler(ctx, effects.NewEffectScopeConfig(10, 10), bindings)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]int) // key => hit count
	)

	numRequests := 1000
	wg.Add(numRequests)

	for i := 0; i < numRequests; i++ {
		go func(i int) {
			defer wg.Done()

			keyIdx := i % len(bindings)
			key := fmt.Sprintf("key%d", keyIdx)

			v, err := binding.Effect(ctx, key)
			mu.Lock()
			defer mu.Unlock()

			if !assert.NoError(t, err, key) {
				return
			}
			assert.Equal(t, fmt.Sprintf("value%d", keyIdx), v)
			results[key]++
		}(i)
	}

	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.NotZero(t, results[fmt.Sprintf("key%d", i)])
	}
}
