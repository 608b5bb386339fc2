package stream

import (
	"context"
	"maps"

	"github.com/google/uuid"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/promise"
	"github.com/on-the-ground/effect_ive_stream/effects/queue"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/take"
)

// Group is the sub-stream of one key.
type Group[K comparable, V any] struct {
	Key   K
	queue *queue.Queue[take.Take[chunk.Pair[K, V]]]
}

// Stream emits the values of the group. Closing it unsubscribes the group:
// later values of its key are dropped.
func (g Group[K, V]) Stream() Stream[V] {
	return Map(FromTakeQueueWithShutdown(g.queue), func(kv chunk.Pair[K, V]) V { return kv.Second })
}

// GroupBy is a stream partitioned by key. Groups are created as new keys
// show up; each buffers up to buffer chunks.
type GroupBy[K comparable, V any] struct {
	grouped Stream[Group[K, V]]
	buffer  int
}

// GroupByM partitions s by the key and value f computes for each element.
func GroupByM[A any, K comparable, V any](s Stream[A], buffer int, f func(context.Context, A) (K, V, error)) GroupBy[K, V] {
	pairs := MapM(s, func(ctx context.Context, a A) (chunk.Pair[K, V], error) {
		k, v, err := f(ctx, a)
		return chunk.Pair[K, V]{First: k, Second: v}, err
	})
	return GroupBy[K, V]{grouped: groups(pairs, buffer), buffer: buffer}
}

// GroupByKey partitions s by key(a).
func GroupByKey[A any, K comparable](s Stream[A], buffer int, key func(A) K) GroupBy[K, A] {
	return GroupByM(s, buffer, func(_ context.Context, a A) (K, A, error) {
		return key(a), a, nil
	})
}

// groups wires a dynamic fan-out whose decider subscribes a new queue the
// first time a key shows up and emits it as a Group. The decider is only
// installed once the fan-out exists, so no element is decided before.
func groups[K comparable, V any](pairs Stream[chunk.Pair[K, V]], buffer int) Stream[Group[K, V]] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[Group[K, V]], error) {
		decider := promise.Make[Decide[chunk.Pair[K, V]]]()
		out := queue.Bounded[take.Take[Group[K, V]]](buffer)
		if _, err := rm.Add(ctx, func(context.Context) error {
			out.Shutdown()
			return nil
		}); err != nil {
			return nil, err
		}

		subscribe, err := DistributedWithDynamic(pairs, buffer,
			func(ctx context.Context, kv chunk.Pair[K, V]) (func(uuid.UUID) bool, error) {
				d, err := decider.Await(ctx)
				if err != nil {
					return nil, err
				}
				return d(ctx, kv)
			},
			func(ctx context.Context, t take.Take[chunk.Pair[K, V]]) error {
				_, err := out.Offer(ctx, terminal[chunk.Pair[K, V], Group[K, V]](t))
				return err
			},
		)(ctx, rm)
		if err != nil {
			return nil, err
		}

		keys := ref.Make(map[K]uuid.UUID{})
		decider.Succeed(func(ctx context.Context, kv chunk.Pair[K, V]) (func(uuid.UUID) bool, error) {
			if id, ok := keys.Get()[kv.First]; ok {
				return isID(id), nil
			}
			sub, err := subscribe(ctx)
			if err != nil {
				return nil, err
			}
			keys.Update(func(m map[K]uuid.UUID) map[K]uuid.UUID {
				m = maps.Clone(m)
				m[kv.First] = sub.ID
				return m
			})
			g := Group[K, V]{Key: kv.First, queue: sub.Queue}
			if _, err := out.Offer(ctx, take.Single(g)); err != nil {
				return nil, err
			}
			return isID(sub.ID), nil
		})

		return takeQueuePull(out), nil
	})
}

func isID(id uuid.UUID) func(uuid.UUID) bool {
	return func(other uuid.UUID) bool { return other == id }
}

// terminal converts a terminal take to another element type.
func terminal[A, B any](t take.Take[A]) take.Take[B] {
	return take.Fold(t,
		take.EndOf[B],
		take.Die[B],
		func(chunk.Chunk[A]) take.Take[B] { return take.EndOf[B]() },
	)
}

// Groups emits each group as soon as its key first shows up.
func (g GroupBy[K, V]) Groups() Stream[Group[K, V]] {
	return g.grouped
}

// First keeps only the first n groups. Values of later keys are dropped.
func (g GroupBy[K, V]) First(n int) GroupBy[K, V] {
	indexed := FilterM(ZipWithIndex(g.grouped), func(_ context.Context, p chunk.Pair[Group[K, V], int]) (bool, error) {
		if p.Second < n {
			return true, nil
		}
		p.First.queue.Shutdown()
		return false, nil
	})
	kept := Map(indexed, func(p chunk.Pair[Group[K, V], int]) Group[K, V] { return p.First })
	return GroupBy[K, V]{grouped: kept, buffer: g.buffer}
}

// Filter keeps only the groups whose key satisfies pred. Values of other
// keys are dropped.
func (g GroupBy[K, V]) Filter(pred func(K) bool) GroupBy[K, V] {
	kept := FilterM(g.grouped, func(_ context.Context, grp Group[K, V]) (bool, error) {
		if pred(grp.Key) {
			return true, nil
		}
		grp.queue.Shutdown()
		return false, nil
	})
	return GroupBy[K, V]{grouped: kept, buffer: g.buffer}
}

// MergeGroups runs f on every group concurrently and merges the results.
func MergeGroups[K comparable, V, B any](g GroupBy[K, V], f func(K, Stream[V]) Stream[B]) Stream[B] {
	return ChainPar(g.grouped, unbounded, g.buffer, func(grp Group[K, V]) Stream[B] {
		return f(grp.Key, grp.Stream())
	})
}
