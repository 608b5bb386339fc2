package stream

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/fiber"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/promise"
	"github.com/on-the-ground/effect_ive_stream/effects/queue"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/take"
)

// signal is a take together with the promise the consumer completes once it
// has received the take.
type signal[A any] struct {
	take     take.Take[A]
	received *promise.Promise[struct{}]
}

// Buffer runs s on its own fiber, up to capacity chunks ahead of the
// consumer.
func Buffer[A any](s Stream[A], capacity int) Stream[A] {
	return bufferSignal(s, func() *queue.Queue[signal[A]] { return queue.Bounded[signal[A]](capacity) })
}

// BufferSliding is Buffer that drops the oldest unconsumed chunks instead of
// slowing the producer down.
func BufferSliding[A any](s Stream[A], capacity int) Stream[A] {
	return bufferSignal(s, func() *queue.Queue[signal[A]] { return queue.SlidingQueue[signal[A]](capacity) })
}

// BufferDropping is Buffer that drops the newest chunks while the buffer is
// full.
func BufferDropping[A any](s Stream[A], capacity int) Stream[A] {
	return bufferSignal(s, func() *queue.Queue[signal[A]] { return queue.DroppingQueue[signal[A]](capacity) })
}

// BufferUnbounded never slows the producer down.
func BufferUnbounded[A any](s Stream[A]) Stream[A] {
	return bufferSignal(s, queue.Unbounded[signal[A]])
}

// bufferSignal forks a producer that offers every take of s to a queue.
// Value takes are offered without waiting; the promise of the latest one
// that made it into the queue is remembered. A terminal take waits for that
// promise first, so it is offered to an empty queue and can never be dropped
// or evicted, and then waits until the consumer has received it.
func bufferSignal[A any](s Stream[A], newQueue func() *queue.Queue[signal[A]]) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}
		q := newQueue()

		start := promise.Make[struct{}]()
		start.Succeed(struct{}{})
		latest := ref.Make(start)

		offer := func(ctx context.Context, t take.Take[A]) error {
			received := promise.Make[struct{}]()
			if !take.IsTerminal(t) {
				added, err := q.Offer(ctx, signal[A]{take: t, received: received})
				if err == nil && added {
					latest.Set(received)
				}
				return err
			}
			if _, err := latest.Get().Await(ctx); err != nil {
				return err
			}
			if _, err := q.Offer(ctx, signal[A]{take: t, received: received}); err != nil {
				return err
			}
			latest.Set(received)
			_, err := received.Await(ctx)
			return err
		}

		producer := fiber.Fork(ctx, func(ctx context.Context) (struct{}, error) {
			for {
				t := take.FromPull(ctx, upstream)
				if err := offer(ctx, t); err != nil {
					return struct{}{}, err
				}
				if take.IsTerminal(t) {
					return struct{}{}, nil
				}
			}
		})

		if _, err := rm.Add(ctx, func(ctx context.Context) error {
			err := producer.Interrupt(ctx)
			q.Shutdown()
			log.LogEff(ctx, log.LogDebug, "buffer producer stopped", map[string]interface{}{
				"fiber":  producer.ID().String(),
				"reason": errString(err),
			})
			return nil
		}); err != nil {
			producer.InterruptFork()
			return nil, err
		}

		done := ref.Make(false)
		return func(ctx context.Context) (chunk.Chunk[A], error) {
			for {
				if done.Get() {
					return chunk.Empty[A](), pull.ErrEnd
				}
				sig, err := q.Take(ctx)
				if err != nil {
					return chunk.Empty[A](), endOnShutdown(err)
				}
				sig.received.Succeed(struct{}{})
				if take.IsTerminal(sig.take) {
					done.Set(true)
				}
				c, err := take.Unwrap(sig.take)
				if err != nil || !c.IsEmpty() {
					return c, err
				}
			}
		}, nil
	})
}

func errString(err error) string {
	if err == nil {
		return "completed"
	}
	return err.Error()
}
