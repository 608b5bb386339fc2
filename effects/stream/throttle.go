package stream

import (
	"context"
	"math"
	"time"

	"github.com/on-the-ground/effect_ive_stream/effects/clock"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
)

// bucket is a token bucket refilled lazily from the time of its last use.
type bucket struct {
	tokens float64
	last   time.Time
}

// spend refills b up to units+burst for the time elapsed since its last
// use, subtracts cost and returns the tokens that would remain.
func (b bucket) spend(now time.Time, units, burst int64, duration time.Duration, cost int64) (float64, bucket) {
	elapsed := clock.Elapsed(b.last, now)
	refill := float64(elapsed) / float64(duration) * float64(units)
	if duration <= 0 {
		refill = math.Inf(1)
	}
	available := math.Min(b.tokens+refill, float64(units+burst))
	return available - float64(cost), bucket{tokens: available, last: now}
}

// ThrottleEnforce lets through chunks whose cost fits in a bucket of units
// tokens per duration, with burst extra capacity, and drops the rest.
func ThrottleEnforce[A any](s Stream[A], units int64, duration time.Duration, burst int64, cost func(chunk.Chunk[A]) int64) Stream[A] {
	return ThrottleEnforceM(s, units, duration, burst, func(_ context.Context, c chunk.Chunk[A]) (int64, error) {
		return cost(c), nil
	})
}

// ThrottleEnforceM is ThrottleEnforce with an effectful cost.
func ThrottleEnforceM[A any](s Stream[A], units int64, duration time.Duration, burst int64, cost func(context.Context, chunk.Chunk[A]) (int64, error)) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}
		clk := clock.FromContext(ctx)
		state := ref.Make(bucket{tokens: float64(units), last: clk.Now()})

		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				c, err := upstream(ctx)
				if err != nil {
					return chunk.Empty[A](), err
				}
				weight, err := cost(ctx, c)
				if err != nil {
					return chunk.Empty[A](), err
				}
				now := clk.Now()
				admitted := ref.Modify(state, func(b bucket) (bool, bucket) {
					remaining, next := b.spend(now, units, burst, duration, weight)
					if remaining < 0 {
						return false, next
					}
					next.tokens = remaining
					return true, next
				})
				if admitted {
					return c, nil
				}
			}
		}, nil
	})
}

// ThrottleShape delays chunks so that their cost stays within units tokens
// per duration, with burst extra capacity. Nothing is dropped.
func ThrottleShape[A any](s Stream[A], units int64, duration time.Duration, burst int64, cost func(chunk.Chunk[A]) int64) Stream[A] {
	return ThrottleShapeM(s, units, duration, burst, func(_ context.Context, c chunk.Chunk[A]) (int64, error) {
		return cost(c), nil
	})
}

// ThrottleShapeM is ThrottleShape with an effectful cost.
func ThrottleShapeM[A any](s Stream[A], units int64, duration time.Duration, burst int64, cost func(context.Context, chunk.Chunk[A]) (int64, error)) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}
		clk := clock.FromContext(ctx)
		state := ref.Make(bucket{tokens: float64(units), last: clk.Now()})

		return func(ctx context.Context) (chunk.Chunk[A], error) {
			c, err := upstream(ctx)
			if err != nil {
				return chunk.Empty[A](), err
			}
			weight, err := cost(ctx, c)
			if err != nil {
				return chunk.Empty[A](), err
			}
			now := clk.Now()
			remaining := ref.Modify(state, func(b bucket) (float64, bucket) {
				remaining, next := b.spend(now, units, burst, duration, weight)
				next.tokens = remaining
				return remaining, next
			})
			if remaining < 0 && units > 0 {
				delay := time.Duration(-remaining / float64(units) * float64(duration))
				log.LogEff(ctx, log.LogDebug, "throttle delaying chunk", map[string]interface{}{
					"delay": delay.String(),
					"cost":  weight,
				})
				if err := clk.Sleep(ctx, delay); err != nil {
					return chunk.Empty[A](), err
				}
			}
			return c, nil
		}, nil
	})
}
