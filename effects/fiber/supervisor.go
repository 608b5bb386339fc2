package fiber

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
)

// Supervisor tracks the fibers forked through it so that an owning scope can
// interrupt and join all of them before it closes.
type Supervisor struct {
	mu       sync.Mutex
	children map[uuid.UUID]child
}

type child struct {
	interrupt func()
	done      <-chan struct{}
}

func NewSupervisor() *Supervisor {
	return &Supervisor{children: make(map[uuid.UUID]child)}
}

// ForkIn forks f and tracks it in sv until it completes.
func ForkIn[A any](ctx context.Context, sv *Supervisor, f func(context.Context) (A, error)) *Fiber[A] {
	fb := Fork(ctx, f)
	sv.mu.Lock()
	sv.children[fb.id] = child{interrupt: fb.InterruptFork, done: fb.Done()}
	sv.mu.Unlock()

	go func() {
		<-fb.Done()
		sv.mu.Lock()
		delete(sv.children, fb.id)
		sv.mu.Unlock()
	}()
	return fb
}

// Size returns the number of tracked fibers.
func (sv *Supervisor) Size() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.children)
}

func (sv *Supervisor) snapshot() []child {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	out := make([]child, 0, len(sv.children))
	for _, c := range sv.children {
		select {
		case <-c.done:
		default:
			out = append(out, c)
		}
	}
	return out
}

// InterruptAll interrupts every live fiber and waits until all of them,
// including fibers forked meanwhile, have finished.
func (sv *Supervisor) InterruptAll(ctx context.Context) error {
	for {
		children := sv.snapshot()
		if len(children) == 0 {
			return nil
		}
		log.LogEff(ctx, log.LogDebug, "interrupting fibers", map[string]interface{}{
			"count": len(children),
		})
		for _, c := range children {
			c.interrupt()
		}
		if err := awaitAll(ctx, children); err != nil {
			return err
		}
	}
}

// Wait blocks until every tracked fiber has finished or ctx is done.
func (sv *Supervisor) Wait(ctx context.Context) error {
	for {
		children := sv.snapshot()
		if len(children) == 0 {
			return nil
		}
		if err := awaitAll(ctx, children); err != nil {
			return err
		}
	}
}

func awaitAll(ctx context.Context, children []child) error {
	for _, c := range children {
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
