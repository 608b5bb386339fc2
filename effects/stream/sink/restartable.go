package sink

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/log"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/ref"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
)

// Restartable is a push that can be torn down and reacquired.
type Restartable[I, L, Z any] struct {
	// Push feeds the current acquisition. Once it has terminated, further
	// pushes fail with ErrPushAfterDone until Restart is called.
	Push Push[I, L, Z]
	// Restart releases the current acquisition and acquires a fresh push.
	Restart func(ctx context.Context) error
}

type restartState[I, L, Z any] struct {
	push  Push[I, L, Z]
	scope *managed.ReleaseMap
	done  bool
}

// MakeRestartable acquires s in a sub-scope of the enclosing scope so that
// each restart can release the previous acquisition early.
func MakeRestartable[I, L, Z any](s Sink[I, L, Z]) managed.Managed[Restartable[I, L, Z]] {
	return func(ctx context.Context, rm *managed.ReleaseMap) (Restartable[I, L, Z], error) {
		acquire := func(ctx context.Context) (restartState[I, L, Z], error) {
			scope, err := rm.Fork(ctx)
			if err != nil {
				return restartState[I, L, Z]{}, err
			}
			p, err := s.push(ctx, scope)
			if err != nil {
				return restartState[I, L, Z]{}, err
			}
			return restartState[I, L, Z]{push: p, scope: scope}, nil
		}

		initial, err := acquire(ctx)
		if err != nil {
			return Restartable[I, L, Z]{}, err
		}
		state := ref.Make(initial)

		push := func(ctx context.Context, in Input[I]) Step[L, Z] {
			st := state.Get()
			if st.done {
				return Failed[L, Z]{Err: cause.Die{Value: ErrPushAfterDone}, Leftover: chunk.Empty[L]()}
			}
			step := st.push(ctx, in)
			if IsTerminal(step) && !interrupted(ctx, step) {
				state.Update(func(cur restartState[I, L, Z]) restartState[I, L, Z] {
					cur.done = true
					return cur
				})
			}
			return step
		}

		restart := func(ctx context.Context) error {
			old := state.Get()
			if err := old.scope.ReleaseAll(ctx); err != nil {
				return err
			}
			next, err := acquire(ctx)
			if err != nil {
				return err
			}
			state.Set(next)
			log.LogEff(ctx, log.LogDebug, "sink restarted", nil)
			return nil
		}

		return Restartable[I, L, Z]{Push: push, Restart: restart}, nil
	}
}
