// Package clock abstracts time so that time-based stream operators can run
// against a virtual clock in tests.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/on-the-ground/effect_ive_stream/effects"
	effectmodel "github.com/on-the-ground/effect_ive_stream/effects/internal/model"
	"github.com/rickb777/date/v2/timespan"
)

type Clock interface {
	Now() time.Time
	// Sleep suspends for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Live is the wall clock.
type Live struct{}

func (Live) Now() time.Time { return time.Now() }

func (Live) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Virtual is a manually driven clock. Sleep does not block: it advances the
// clock by the requested duration and records it.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sleeps = append(v.sleeps, d)
	if d > 0 {
		v.now = v.now.Add(d)
	}
	return nil
}

// Adjust moves the clock forward by d.
func (v *Virtual) Adjust(d time.Duration) {
	v.mu.Lock()
	v.now = v.now.Add(d)
	v.mu.Unlock()
}

// Sleeps returns the durations passed to Sleep so far.
func (v *Virtual) Sleeps() []time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]time.Duration(nil), v.sleeps...)
}

// Elapsed is the non-negative duration between from and to.
func Elapsed(from, to time.Time) time.Duration {
	return timespan.BetweenTimes(from, to).Duration()
}

// WithEffectHandler binds c to the returned context.
func WithEffectHandler(ctx context.Context, c Clock) (context.Context, func() context.Context) {
	return effects.WithResumableEffectHandler(
		ctx,
		1,
		effectmodel.EffectClock,
		func(context.Context, struct{}) (Clock, error) {
			return c, nil
		},
	)
}

// FromContext returns the clock bound to ctx, or Live when none is bound.
func FromContext(ctx context.Context) Clock {
	c, err := effects.PerformResumableEffect[struct{}, Clock](ctx, effectmodel.EffectClock, struct{}{})
	if err != nil || c == nil {
		return Live{}
	}
	return c
}
