package stream

import (
	"context"
	"errors"
	"maps"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/fiber"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/promise"
	"github.com/on-the-ground/effect_ive_stream/effects/queue"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/semaphore"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/take"
)

// Subscription is one consumer queue of a dynamic fan-out.
type Subscription[A any] struct {
	ID    uuid.UUID
	Queue *queue.Queue[take.Take[A]]
}

// Subscribe registers a new consumer queue.
type Subscribe[A any] func(ctx context.Context) (Subscription[A], error)

// Decide picks, for one element, the subscriptions that receive it.
type Decide[A any] func(ctx context.Context, a A) (func(uuid.UUID) bool, error)

type subscriptions[A any] map[uuid.UUID]*queue.Queue[take.Take[A]]

// DistributedWithDynamic runs s on its own fiber and offers every element to
// the subscriptions that decide selects for it. Subscriptions are made with
// the returned Subscribe while the managed scope is open; each gets a queue
// of maxQueueSize takes.
//
// A subscription whose queue was shut down by its consumer is dropped.
// When s ends or fails, the terminal take is offered to every live
// subscription, passed to done, and handed to every later subscriber.
func DistributedWithDynamic[A any](s Stream[A], maxQueueSize int, decide Decide[A], done func(context.Context, take.Take[A]) error) managed.Managed[Subscribe[A]] {
	return func(ctx context.Context, rm *managed.ReleaseMap) (Subscribe[A], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}

		live := ref.Make(subscriptions[A]{})
		guard := semaphore.New(1)
		newQueue := ref.Make(func(context.Context) (Subscription[A], error) {
			sub := Subscription[A]{ID: uuid.New(), Queue: queue.Bounded[take.Take[A]](maxQueueSize)}
			live.Update(func(m subscriptions[A]) subscriptions[A] {
				next := maps.Clone(m)
				next[sub.ID] = sub.Queue
				return next
			})
			return sub, nil
		})

		subscribe := func(ctx context.Context) (Subscription[A], error) {
			return semaphore.WithPermit(ctx, guard, func(ctx context.Context) (Subscription[A], error) {
				return newQueue.Get()(ctx)
			})
		}

		unsubscribe := func(ctx context.Context, ids []uuid.UUID) error {
			_, err := semaphore.WithPermit(ctx, guard, func(ctx context.Context) (struct{}, error) {
				live.Update(func(m subscriptions[A]) subscriptions[A] {
					next := maps.Clone(m)
					for _, id := range ids {
						delete(next, id)
					}
					return next
				})
				return struct{}{}, nil
			})
			log.LogEff(ctx, log.LogDebug, "distributed queues removed", map[string]interface{}{
				"count": len(ids),
			})
			return err
		}

		offer := func(ctx context.Context, c chunk.Chunk[A]) error {
			selected := make([]func(uuid.UUID) bool, 0, c.Len())
			for a := range c.All() {
				pred, err := decide(ctx, a)
				if err != nil {
					return err
				}
				selected = append(selected, pred)
			}

			var gone []uuid.UUID
			for id, q := range live.Get() {
				var batch []A
				for i, pred := range selected {
					if pred(id) {
						a, _ := c.Get(i)
						batch = append(batch, a)
					}
				}
				if len(batch) == 0 {
					continue
				}
				if _, err := q.Offer(ctx, take.Chunk(chunk.Unsafe(batch))); err != nil {
					if !errors.Is(err, queue.ErrShutdown) {
						return err
					}
					gone = append(gone, id)
				}
			}
			if len(gone) == 0 {
				return nil
			}
			return unsubscribe(ctx, gone)
		}

		finalize := func(ctx context.Context, t take.Take[A]) error {
			_, err := semaphore.WithPermit(ctx, guard, func(ctx context.Context) (struct{}, error) {
				newQueue.Set(func(ctx context.Context) (Subscription[A], error) {
					q := queue.Bounded[take.Take[A]](1)
					if _, err := q.Offer(ctx, t); err != nil {
						return Subscription[A]{}, err
					}
					return Subscription[A]{ID: uuid.New(), Queue: q}, nil
				})
				subs := live.Get()
				log.LogEff(ctx, log.LogDebug, "distributing terminal take", map[string]interface{}{
					"queues": len(subs),
				})
				for _, q := range subs {
					if _, err := q.Offer(ctx, t); err != nil && !errors.Is(err, queue.ErrShutdown) {
						return struct{}{}, err
					}
				}
				return struct{}{}, done(ctx, t)
			})
			return err
		}

		driver := fiber.Fork(ctx, func(ctx context.Context) (struct{}, error) {
			for {
				t := take.FromPull(ctx, upstream)
				c, err := take.Unwrap(t)
				if err != nil {
					return struct{}{}, finalize(ctx, t)
				}
				if _, err := cause.Catch(func() (struct{}, error) { return struct{}{}, offer(ctx, c) }); err != nil {
					return struct{}{}, finalize(ctx, take.Fail[A](err))
				}
			}
		})

		if _, err := rm.Add(ctx, func(ctx context.Context) error {
			_ = driver.Interrupt(ctx)
			for _, q := range live.Get() {
				q.Shutdown()
			}
			return nil
		}); err != nil {
			return nil, err
		}

		return subscribe, nil
	}
}

// DistributedWith fans s out to n streams. decide picks, for each element,
// the indexes of the streams that receive it; each stream may fall up to
// maxLag chunks behind. The streams must be consumed inside the scope.
func DistributedWith[A any](s Stream[A], n, maxLag int, decide func(context.Context, A) (func(int) bool, error)) managed.Managed[[]Stream[A]] {
	return func(ctx context.Context, rm *managed.ReleaseMap) ([]Stream[A], error) {
		decider := promise.Make[Decide[A]]()
		subscribe, err := DistributedWithDynamic(s, maxLag, func(ctx context.Context, a A) (func(uuid.UUID) bool, error) {
			d, err := decider.Await(ctx)
			if err != nil {
				return nil, err
			}
			return d(ctx, a)
		}, func(context.Context, take.Take[A]) error { return nil })(ctx, rm)
		if err != nil {
			return nil, err
		}

		indexes := make(map[uuid.UUID]int, n)
		streams := make([]Stream[A], 0, n)
		for i := range n {
			sub, err := subscribe(ctx)
			if err != nil {
				decider.Fail(err)
				return nil, err
			}
			indexes[sub.ID] = i
			streams = append(streams, FromTakeQueueWithShutdown(sub.Queue))
		}

		decider.Succeed(func(ctx context.Context, a A) (func(uuid.UUID) bool, error) {
			pred, err := decide(ctx, a)
			if err != nil {
				return nil, err
			}
			return func(id uuid.UUID) bool {
				i, ok := indexes[id]
				return ok && pred(i)
			}, nil
		})
		return streams, nil
	}
}

// Broadcast fans every element of s out to n streams.
func Broadcast[A any](s Stream[A], n, maxLag int) managed.Managed[[]Stream[A]] {
	return DistributedWith(s, n, maxLag, func(context.Context, A) (func(int) bool, error) {
		return func(int) bool { return true }, nil
	})
}

// PartitionByKey sends each element of s to exactly one of n streams,
// chosen by the hash of its key.
func PartitionByKey[A any](s Stream[A], n, maxLag int, key func(A) string) managed.Managed[[]Stream[A]] {
	n = max(n, 1)
	return DistributedWith(s, n, maxLag, func(_ context.Context, a A) (func(int) bool, error) {
		partition := int(xxhash.Sum64String(key(a)) % uint64(n))
		return func(i int) bool { return i == partition }, nil
	})
}
