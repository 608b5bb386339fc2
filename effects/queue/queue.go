// Package queue provides an asynchronous FIFO queue with back-pressure
// strategies and shutdown.
package queue

import (
	"context"
	"errors"
	"math"
	"sync"
)

// ErrShutdown is returned by every operation on a queue that was shut down,
// including operations suspended at the time of the shutdown.
var ErrShutdown = errors.New("queue shut down")

// Strategy decides what Offer does when the queue is full.
type Strategy int

const (
	// BackPressure suspends the offerer until there is room.
	BackPressure Strategy = iota
	// Sliding evicts the oldest element to make room.
	Sliding
	// Dropping discards the offered element.
	Dropping
)

type Queue[A any] struct {
	mu       sync.Mutex
	items    []A
	capacity int
	strategy Strategy

	// closed and replaced whenever the corresponding condition may have changed
	notEmpty chan struct{}
	notFull  chan struct{}

	shutdown   bool
	shutdownCh chan struct{}
}

func newQueue[A any](capacity int, strategy Strategy) *Queue[A] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[A]{
		capacity:   capacity,
		strategy:   strategy,
		notEmpty:   make(chan struct{}),
		notFull:    make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Bounded returns a back-pressured queue. Capacities below 1 are raised to 1.
func Bounded[A any](capacity int) *Queue[A] {
	return newQueue[A](capacity, BackPressure)
}

func SlidingQueue[A any](capacity int) *Queue[A] {
	return newQueue[A](capacity, Sliding)
}

func DroppingQueue[A any](capacity int) *Queue[A] {
	return newQueue[A](capacity, Dropping)
}

func Unbounded[A any]() *Queue[A] {
	return newQueue[A](math.MaxInt, BackPressure)
}

func (q *Queue[A]) Capacity() int {
	return q.capacity
}

func (q *Queue[A]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Offer enqueues a. It reports false when a Dropping queue discarded a.
// A back-pressured Offer that is cancelled leaves the queue unchanged.
func (q *Queue[A]) Offer(ctx context.Context, a A) (bool, error) {
	for {
		q.mu.Lock()
		if q.shutdown {
			q.mu.Unlock()
			return false, ErrShutdown
		}
		if len(q.items) < q.capacity {
			q.push(a)
			q.mu.Unlock()
			return true, nil
		}
		switch q.strategy {
		case Dropping:
			q.mu.Unlock()
			return false, nil
		case Sliding:
			var zero A
			q.items[0] = zero
			q.items = q.items[1:]
			q.push(a)
			q.mu.Unlock()
			return true, nil
		}
		wait := q.notFull
		q.mu.Unlock()

		select {
		case <-wait:
		case <-q.shutdownCh:
			return false, ErrShutdown
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// OfferAll offers every element in order and stops at the first error.
func (q *Queue[A]) OfferAll(ctx context.Context, as []A) error {
	for _, a := range as {
		if _, err := q.Offer(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// push appends a and wakes takers. q.mu must be held.
func (q *Queue[A]) push(a A) {
	q.items = append(q.items, a)
	close(q.notEmpty)
	q.notEmpty = make(chan struct{})
}

// pop removes up to n elements and wakes offerers. q.mu must be held.
func (q *Queue[A]) pop(n int) []A {
	n = min(n, len(q.items))
	out := make([]A, n)
	copy(out, q.items)
	clear(q.items[:n])
	q.items = q.items[n:]
	if n > 0 {
		close(q.notFull)
		q.notFull = make(chan struct{})
	}
	return out
}

// Take removes the oldest element, suspending while the queue is empty.
// An element is only removed when it is returned.
func (q *Queue[A]) Take(ctx context.Context) (A, error) {
	for {
		q.mu.Lock()
		if q.shutdown {
			q.mu.Unlock()
			var zero A
			return zero, ErrShutdown
		}
		if len(q.items) > 0 {
			a := q.pop(1)[0]
			q.mu.Unlock()
			return a, nil
		}
		wait := q.notEmpty
		q.mu.Unlock()

		select {
		case <-wait:
		case <-q.shutdownCh:
			var zero A
			return zero, ErrShutdown
		case <-ctx.Done():
			var zero A
			return zero, ctx.Err()
		}
	}
}

// Poll removes the oldest element without suspending; ok is false when the
// queue is empty.
func (q *Queue[A]) Poll() (a A, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return a, false, ErrShutdown
	}
	if len(q.items) == 0 {
		return a, false, nil
	}
	return q.pop(1)[0], true, nil
}

// TakeUpTo removes at most max elements without suspending.
func (q *Queue[A]) TakeUpTo(max int) ([]A, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return nil, ErrShutdown
	}
	return q.pop(max), nil
}

// TakeAll removes every element currently queued.
func (q *Queue[A]) TakeAll() ([]A, error) {
	return q.TakeUpTo(math.MaxInt)
}

// Shutdown discards the queued elements and fails all current and future
// operations with ErrShutdown. It is idempotent.
func (q *Queue[A]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return
	}
	q.shutdown = true
	q.items = nil
	close(q.shutdownCh)
}

func (q *Queue[A]) IsShutdown() bool {
	select {
	case <-q.shutdownCh:
		return true
	default:
		return false
	}
}

// AwaitShutdown blocks until the queue is shut down or ctx is done.
func (q *Queue[A]) AwaitShutdown(ctx context.Context) error {
	select {
	case <-q.shutdownCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
