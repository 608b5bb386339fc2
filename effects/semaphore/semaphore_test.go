package semaphore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_stream/effects/semaphore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_BoundsConcurrency(t *testing.T) {
	s := semaphore.New(2)
	var running, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := semaphore.WithPermit(context.Background(), s, func(ctx context.Context) (struct{}, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(2), s.Permits())
}

func TestSemaphore_ReleasesOnError(t *testing.T) {
	s := semaphore.New(1)
	boom := errors.New("boom")
	_, err := semaphore.WithPermit(context.Background(), s, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	require.True(t, s.TryAcquire(1))
	s.Release(1)
}

func TestSemaphore_CancelledAcquire(t *testing.T) {
	s := semaphore.New(1)
	require.NoError(t, s.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Acquire(ctx, 1), context.DeadlineExceeded)

	s.Release(1)
	assert.True(t, s.TryAcquire(1))
}
