package fiber_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/fiber"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/on-the-ground/effect_ive_stream/effects/promise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiber_JoinSuccess(t *testing.T) {
	fb := fiber.Fork(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := fb.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFiber_JoinFailure(t *testing.T) {
	boom := errors.New("boom")
	fb := fiber.Fork(context.Background(), func(ctx context.Context) (int, error) {
		return 0, boom
	})
	_, err := fb.Join(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, cause.Fail{Err: boom}, err)
}

func TestFiber_PanicBecomesDie(t *testing.T) {
	ctx, endOfLogHandler := log.WithTestLogEffectHandler(context.Background())
	defer endOfLogHandler()

	fb := fiber.Fork(ctx, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	_, err := fb.Join(ctx)
	var die cause.Die
	require.ErrorAs(t, err, &die)
	assert.Equal(t, "kaboom", die.Value)
}

func TestFiber_Interrupt(t *testing.T) {
	started := make(chan struct{})
	fb := fiber.Fork(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started

	err := fb.Interrupt(context.Background())
	var in cause.Interrupt
	require.ErrorAs(t, err, &in)
	assert.Equal(t, fb.ID(), in.FiberID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFiber_ParentCancellationInterrupts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fb := fiber.Fork(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	cancel()

	select {
	case <-fb.Done():
	case <-time.After(time.Second):
		t.Fatal("fiber should stop when its parent context is cancelled")
	}
	_, err := fb.Poll()
	assert.True(t, cause.IsInterruptedOnly(cause.FromError(err)))
}

func TestFiber_PollPending(t *testing.T) {
	release := make(chan struct{})
	fb := fiber.Fork(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	_, err := fb.Poll()
	assert.ErrorIs(t, err, promise.ErrPending)
	close(release)
	v, err := fb.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSupervisor_InterruptAll(t *testing.T) {
	ctx, endOfLogHandler := log.WithTestLogEffectHandler(context.Background())
	defer endOfLogHandler()

	sv := fiber.NewSupervisor()
	var stopped atomic.Int32
	for i := 0; i < 5; i++ {
		fiber.ForkIn(ctx, sv, func(ctx context.Context) (struct{}, error) {
			<-ctx.Done()
			stopped.Add(1)
			return struct{}{}, ctx.Err()
		})
	}

	require.NoError(t, sv.InterruptAll(ctx))
	assert.Equal(t, int32(5), stopped.Load())
	assert.Eventually(t, func() bool { return sv.Size() == 0 }, time.Second, time.Millisecond)
}

func TestSupervisor_Wait(t *testing.T) {
	sv := fiber.NewSupervisor()
	var finished atomic.Int32
	for i := 0; i < 3; i++ {
		fiber.ForkIn(context.Background(), sv, func(ctx context.Context) (struct{}, error) {
			time.Sleep(5 * time.Millisecond)
			finished.Add(1)
			return struct{}{}, nil
		})
	}
	require.NoError(t, sv.Wait(context.Background()))
	assert.Equal(t, int32(3), finished.Load())
}
