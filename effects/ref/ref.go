// Package ref provides a mutable cell with atomic read-modify-write.
package ref

import "sync"

// Ref is a mutex-guarded cell. The zero value is not usable; use Make.
type Ref[A any] struct {
	mu    sync.Mutex
	value A
}

func Make[A any](initial A) *Ref[A] {
	return &Ref[A]{value: initial}
}

func (r *Ref[A]) Get() A {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

func (r *Ref[A]) Set(a A) {
	r.mu.Lock()
	r.value = a
	r.mu.Unlock()
}

// GetAndSet stores a and returns the previous value.
func (r *Ref[A]) GetAndSet(a A) A {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.value
	r.value = a
	return old
}

func (r *Ref[A]) Update(f func(A) A) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = f(r.value)
}

// UpdateAndGet applies f and returns the new value.
func (r *Ref[A]) UpdateAndGet(f func(A) A) A {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = f(r.value)
	return r.value
}

// Modify is the general atomic transition: f receives the current value and
// returns a result together with the next value. f must not block.
func Modify[A, B any](r *Ref[A], f func(A) (B, A)) B {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, next := f(r.value)
	r.value = next
	return b
}
