package handlers_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_stream/effects/internal/handlers"
	effectmodel "github.com/on-the-ground/effect_ive_stream/effects/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPartitionable is a mock type that implements the Partitionable interface
type mockPartitionable struct {
	id   string
	hash string
}

func (m mockPartitionable) PartitionKey() string {
	return m.hash
}

func TestFireAndForgetHandler_BasicExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)

	handler := handlers.NewFireAndForgetHandler(
		ctx,
		10,
		func(ctx context.Context, msg string) {
			received <- msg
		},
		func() {}, // no-op teardown
	)
	defer handler.Close()

	assert.True(t, handler.FireAndForgetEffect(ctx, "hello"))

	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for handler")
	}
}

func TestFireAndForgetHandler_CancelContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called bool

	handler := handlers.NewFireAndForgetHandler(
		ctx,
		10,
		func(ctx context.Context, msg string) {
			called = true
		},
		func() {},
	)
	defer handler.Close()

	assert.False(t, handler.FireAndForgetEffect(ctx, "should-not-send"))
	assert.False(t, called, "handler should not have been called")
}

func TestFireAndForgetHandler_CloseRunsTeardownOnce(t *testing.T) {
	ctx := context.Background()
	teardowns := 0

	handler := handlers.NewFireAndForgetHandler(ctx, 1, func(context.Context, int) {}, func() { teardowns++ })
	handler.Close()
	handler.Close()

	assert.Equal(t, 1, teardowns)
	assert.False(t, handler.FireAndForgetEffect(ctx, 1), "closed handler must reject payloads")
}

func TestPartitionableFireAndForgetHandler_SameHashGoesToSameWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []string
	done := make(chan struct{})

	handler := handlers.NewPartitionableFireAndForgetHandler(
		ctx,
		effectmodel.EffectScopeConfig{
			BufferSize: 5,
			NumWorkers: 3,
		},
		func(ctx context.Context, msg mockPartitionable) {
			mu.Lock()
			defer mu.Unlock()

			received = append(received, msg.id)
			if len(received) == 2 {
				close(done)
			}
		},
		func() {},
	)
	defer handler.Close()

	handler.FireAndForgetEffect(ctx, mockPartitionable{id: "first", hash: "same"})
	handler.FireAndForgetEffect(ctx, mockPartitionable{id: "second", hash: "same"})

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for messages")
	}

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, received, "messages with same hash should be processed in order")
	mu.Unlock()
}

func TestResumableHandler_ReturnsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errOdd := errors.New("odd")
	handler := handlers.NewResumableHandler(
		ctx,
		4,
		func(_ context.Context, n int) (int, error) {
			if n%2 == 1 {
				return 0, errOdd
			}
			return n * 10, nil
		},
		func() {},
	)
	defer handler.Close()

	res, ok := <-handler.PerformEffect(ctx, 2)
	require.True(t, ok)
	assert.NoError(t, res.Err)
	assert.Equal(t, 20, res.Value)

	res, ok = <-handler.PerformEffect(ctx, 3)
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, errOdd)
}

func TestPartitionableResumableHandler_ClosedHandlerClosesResumeChannel(t *testing.T) {
	ctx := context.Background()

	handler := handlers.NewPartitionableResumableHandler(
		ctx,
		effectmodel.NewEffectScopeConfig(2, 2),
		func(_ context.Context, p mockPartitionable) (string, error) {
			return p.id, nil
		},
		func() {},
	)

	res, ok := <-handler.PerformEffect(ctx, mockPartitionable{id: "x", hash: "k"})
	require.True(t, ok)
	assert.Equal(t, "x", res.Value)

	handler.Close()
	<-handler.Done()

	_, ok = <-handler.PerformEffect(ctx, mockPartitionable{id: "y", hash: "k"})
	assert.False(t, ok)
}
