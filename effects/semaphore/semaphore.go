// Package semaphore is a FIFO-fair counting semaphore with scoped permits.
package semaphore

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type Semaphore struct {
	permits int64
	w       *semaphore.Weighted
}

func New(permits int64) *Semaphore {
	return &Semaphore{permits: permits, w: semaphore.NewWeighted(permits)}
}

func (s *Semaphore) Permits() int64 {
	return s.permits
}

// Acquire blocks until n permits are available or ctx is done. Waiters are
// served in arrival order. A cancelled acquisition holds no permits.
func (s *Semaphore) Acquire(ctx context.Context, n int64) error {
	return s.w.Acquire(ctx, n)
}

func (s *Semaphore) TryAcquire(n int64) bool {
	return s.w.TryAcquire(n)
}

func (s *Semaphore) Release(n int64) {
	s.w.Release(n)
}

// WithPermits runs f while holding n permits; the permits are returned
// however f exits.
func WithPermits[A any](ctx context.Context, s *Semaphore, n int64, f func(context.Context) (A, error)) (A, error) {
	if err := s.Acquire(ctx, n); err != nil {
		var zero A
		return zero, err
	}
	defer s.Release(n)
	return f(ctx)
}

// WithPermit is WithPermits with a single permit.
func WithPermit[A any](ctx context.Context, s *Semaphore, f func(context.Context) (A, error)) (A, error) {
	return WithPermits(ctx, s, 1, f)
}
