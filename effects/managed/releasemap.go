// Package managed describes scoped resources: acquisitions paired with
// finalizers that run exactly once, in reverse order, when the scope closes.
package managed

import (
	"context"
	"errors"
	"sync"

	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"go.uber.org/multierr"
)

// ErrReleaseMapClosed is returned by Add once the map has been released.
var ErrReleaseMapClosed = errors.New("release map already released")

// Finalizer releases a resource. It runs under a context that is not
// cancelled, so it cannot be skipped.
type Finalizer func(ctx context.Context) error

// NoopFinalizer releases nothing.
func NoopFinalizer(context.Context) error { return nil }

// Key identifies a finalizer within a ReleaseMap.
type Key uint64

// ReleaseMap is an ordered set of finalizers.
type ReleaseMap struct {
	mu         sync.Mutex
	next       Key
	finalizers map[Key]Finalizer
	order      []Key
	released   bool
}

func NewReleaseMap() *ReleaseMap {
	return &ReleaseMap{finalizers: make(map[Key]Finalizer)}
}

// Add registers f. If the map is already released, f runs immediately and
// ErrReleaseMapClosed is returned along with any error from f.
func (rm *ReleaseMap) Add(ctx context.Context, f Finalizer) (Key, error) {
	rm.mu.Lock()
	if rm.released {
		rm.mu.Unlock()
		return 0, multierr.Append(ErrReleaseMapClosed, runFinalizer(ctx, f))
	}
	k := rm.next
	rm.next++
	rm.finalizers[k] = f
	rm.order = append(rm.order, k)
	rm.mu.Unlock()
	return k, nil
}

// Release runs the finalizer registered under k, if it has not run yet.
func (rm *ReleaseMap) Release(ctx context.Context, k Key) error {
	rm.mu.Lock()
	f, ok := rm.finalizers[k]
	delete(rm.finalizers, k)
	rm.mu.Unlock()
	if !ok {
		return nil
	}
	return runFinalizer(ctx, f)
}

// Remove unregisters the finalizer under k without running it.
func (rm *ReleaseMap) Remove(k Key) (Finalizer, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	f, ok := rm.finalizers[k]
	delete(rm.finalizers, k)
	return f, ok
}

// ReleaseAll runs every remaining finalizer in reverse order of addition and
// marks the map released. Errors are combined; later calls are no-ops.
func (rm *ReleaseMap) ReleaseAll(ctx context.Context) error {
	rm.mu.Lock()
	if rm.released {
		rm.mu.Unlock()
		return nil
	}
	rm.released = true
	pending := make([]Finalizer, 0, len(rm.finalizers))
	for i := len(rm.order) - 1; i >= 0; i-- {
		if f, ok := rm.finalizers[rm.order[i]]; ok {
			pending = append(pending, f)
		}
	}
	rm.finalizers = nil
	rm.order = nil
	rm.mu.Unlock()

	var errs error
	for _, f := range pending {
		errs = multierr.Append(errs, runFinalizer(ctx, f))
	}
	if errs != nil {
		log.LogEff(ctx, log.LogWarn, "finalizers failed", map[string]interface{}{
			"error": errs.Error(),
		})
	}
	return errs
}

// Fork creates a child map whose release is registered in rm, so the child
// can be released early or together with its parent.
func (rm *ReleaseMap) Fork(ctx context.Context) (*ReleaseMap, error) {
	child := NewReleaseMap()
	if _, err := rm.Add(ctx, child.ReleaseAll); err != nil {
		return nil, err
	}
	return child, nil
}

func runFinalizer(ctx context.Context, f Finalizer) error {
	return f(context.WithoutCancel(ctx))
}
