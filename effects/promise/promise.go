// Package promise provides a single-assignment cell that can be awaited.
package promise

import (
	"context"
	"errors"
	"sync"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
)

// ErrPending is returned by Poll while the promise is not completed.
var ErrPending = errors.New("promise not completed")

// Promise is completed at most once, with either a value or a cause.
type Promise[A any] struct {
	once  sync.Once
	done  chan struct{}
	value A
	cause cause.Cause
}

func Make[A any]() *Promise[A] {
	return &Promise[A]{done: make(chan struct{})}
}

func (p *Promise[A]) complete(a A, c cause.Cause) bool {
	completed := false
	p.once.Do(func() {
		p.value, p.cause = a, c
		close(p.done)
		completed = true
	})
	return completed
}

// Succeed completes p with a. It reports whether this call completed p.
func (p *Promise[A]) Succeed(a A) bool {
	return p.complete(a, nil)
}

// Fail completes p with err, reified as a cause.
func (p *Promise[A]) Fail(err error) bool {
	var zero A
	return p.complete(zero, cause.FromError(err))
}

// Halt completes p with c.
func (p *Promise[A]) Halt(c cause.Cause) bool {
	var zero A
	return p.complete(zero, c)
}

// Done is closed once p is completed.
func (p *Promise[A]) Done() <-chan struct{} {
	return p.done
}

func (p *Promise[A]) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await blocks until p is completed or ctx is done. A cancelled wait returns
// ctx.Err() and leaves p untouched.
func (p *Promise[A]) Await(ctx context.Context) (A, error) {
	select {
	case <-p.done:
		return p.result()
	default:
	}
	select {
	case <-p.done:
		return p.result()
	case <-ctx.Done():
		var zero A
		return zero, ctx.Err()
	}
}

// Poll returns the outcome without blocking, or ErrPending.
func (p *Promise[A]) Poll() (A, error) {
	if !p.IsDone() {
		var zero A
		return zero, ErrPending
	}
	return p.result()
}

func (p *Promise[A]) result() (A, error) {
	if p.cause != nil {
		var zero A
		return zero, p.cause
	}
	return p.value, nil
}
