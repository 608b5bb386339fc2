package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_stream/effects/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtual_SleepAdvances(t *testing.T) {
	v := clock.NewVirtual(epoch)
	require.NoError(t, v.Sleep(context.Background(), time.Second))
	v.Adjust(500 * time.Millisecond)

	assert.Equal(t, epoch.Add(1500*time.Millisecond), v.Now())
	assert.Equal(t, []time.Duration{time.Second}, v.Sleeps())
}

func TestVirtual_SleepHonoursCancellation(t *testing.T) {
	v := clock.NewVirtual(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, v.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, epoch, v.Now())
}

func TestLive_Sleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, clock.Live{}.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, clock.Live{}.Sleep(ctx, time.Hour), context.DeadlineExceeded)
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, 2*time.Second, clock.Elapsed(epoch, epoch.Add(2*time.Second)))
	assert.Equal(t, time.Duration(0), clock.Elapsed(epoch, epoch))
}

func TestFromContext(t *testing.T) {
	assert.IsType(t, clock.Live{}, clock.FromContext(context.Background()))

	v := clock.NewVirtual(epoch)
	ctx, endOfClockHandler := clock.WithEffectHandler(context.Background(), v)
	defer endOfClockHandler()
	assert.Same(t, v, clock.FromContext(ctx))
}
