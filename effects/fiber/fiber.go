// Package fiber runs computations on their own goroutine with an identity,
// an interruption handle and an awaitable outcome.
package fiber

import (
	"context"

	"github.com/google/uuid"
	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/on-the-ground/effect_ive_stream/effects/promise"
)

// Fiber is a running computation. Its outcome is a value or a cause.Cause.
type Fiber[A any] struct {
	id     uuid.UUID
	cancel context.CancelCauseFunc
	exit   *promise.Promise[A]
}

// Fork starts f on a new goroutine. The fiber's context is derived from ctx,
// so cancelling ctx interrupts the fiber. Panics in f become cause.Die.
func Fork[A any](ctx context.Context, f func(context.Context) (A, error)) *Fiber[A] {
	id := uuid.New()
	fctx, cancel := context.WithCancelCause(ctx)
	fb := &Fiber[A]{
		id:     id,
		cancel: cancel,
		exit:   promise.Make[A](),
	}

	ready := make(chan struct{})
	go func() {
		close(ready)
		defer cancel(nil)
		defer func() {
			if r := recover(); r != nil {
				log.LogEff(ctx, log.LogError, "panic in fiber", map[string]interface{}{
					"fiber": id.String(),
					"error": r,
				})
				fb.exit.Halt(cause.FromPanic(r))
			}
		}()

		a, err := f(fctx)
		if err != nil {
			fb.exit.Halt(fb.causeOf(fctx, err))
			return
		}
		fb.exit.Succeed(a)
	}()
	<-ready

	return fb
}

// causeOf reifies err. A bare cancellation observed after the fiber's own
// context was cancelled is attributed to this fiber.
func (f *Fiber[A]) causeOf(fctx context.Context, err error) cause.Cause {
	c := cause.FromError(err)
	if in, ok := c.(cause.Interrupt); ok && in.FiberID == uuid.Nil && fctx.Err() != nil {
		return cause.InterruptedBy(f.id)
	}
	return c
}

func (f *Fiber[A]) ID() uuid.UUID {
	return f.id
}

// Join waits for the outcome of the fiber. Cancelling ctx abandons the wait,
// not the fiber.
func (f *Fiber[A]) Join(ctx context.Context) (A, error) {
	return f.exit.Await(ctx)
}

// Done is closed when the fiber has completed.
func (f *Fiber[A]) Done() <-chan struct{} {
	return f.exit.Done()
}

// Poll returns the outcome without blocking, or promise.ErrPending.
func (f *Fiber[A]) Poll() (A, error) {
	return f.exit.Poll()
}

// InterruptFork requests interruption and returns immediately.
func (f *Fiber[A]) InterruptFork() {
	f.cancel(cause.InterruptedBy(f.id))
}

// Interrupt requests interruption and waits for the fiber to finish,
// returning its final error (nil if it completed successfully first).
func (f *Fiber[A]) Interrupt(ctx context.Context) error {
	f.InterruptFork()
	select {
	case <-f.exit.Done():
		_, err := f.exit.Poll()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
