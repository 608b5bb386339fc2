package managed_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

func (r *recorder) resource(name string) managed.Managed[string] {
	return managed.AcquireRelease(
		func(context.Context) (string, error) {
			r.add("acquire " + name)
			return name, nil
		},
		func(context.Context, string) error {
			r.add("release " + name)
			return nil
		},
	)
}

func TestUse_ReleasesInReverseOrder(t *testing.T) {
	rec := &recorder{}
	both := managed.FlatMap(rec.resource("a"), func(a string) managed.Managed[string] {
		return managed.Map(rec.resource("b"), func(b string) string { return a + b })
	})

	v, err := managed.Use(context.Background(), both, func(ctx context.Context, s string) (string, error) {
		rec.add("use " + s)
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ab", v)
	assert.Equal(t, []string{"acquire a", "acquire b", "use ab", "release b", "release a"}, rec.log)
}

func TestUse_ReleasesOnFailureAndCancellation(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())

	_, err := managed.Use(ctx, rec.resource("a"), func(ctx context.Context, _ string) (int, error) {
		cancel()
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"acquire a", "release a"}, rec.log)
}

func TestUse_FailedAcquireRegistersNothing(t *testing.T) {
	released := false
	boom := errors.New("boom")
	m := managed.AcquireRelease(
		func(context.Context) (int, error) { return 0, boom },
		func(context.Context, int) error { released = true; return nil },
	)
	_, err := managed.Use(context.Background(), m, func(context.Context, int) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, boom)
	assert.False(t, released)
}

func TestReleaseMap_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	rm := managed.NewReleaseMap()
	calls := 0
	k, err := rm.Add(ctx, func(context.Context) error { calls++; return nil })
	require.NoError(t, err)

	require.NoError(t, rm.Release(ctx, k))
	require.NoError(t, rm.Release(ctx, k))
	require.NoError(t, rm.ReleaseAll(ctx))
	require.NoError(t, rm.ReleaseAll(ctx))
	assert.Equal(t, 1, calls)
}

func TestReleaseMap_CombinesErrors(t *testing.T) {
	ctx := context.Background()
	rm := managed.NewReleaseMap()
	e1, e2 := errors.New("e1"), errors.New("e2")
	_, _ = rm.Add(ctx, func(context.Context) error { return e1 })
	_, _ = rm.Add(ctx, func(context.Context) error { return e2 })

	err := rm.ReleaseAll(ctx)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestReleaseMap_AddAfterRelease(t *testing.T) {
	ctx := context.Background()
	rm := managed.NewReleaseMap()
	require.NoError(t, rm.ReleaseAll(ctx))

	ran := false
	_, err := rm.Add(ctx, func(context.Context) error { ran = true; return nil })
	assert.ErrorIs(t, err, managed.ErrReleaseMapClosed)
	assert.True(t, ran)
}

func TestReleaseMap_FinalizersSeeLiveContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rm := managed.NewReleaseMap()
	var seen error
	_, _ = rm.Add(ctx, func(ctx context.Context) error { seen = ctx.Err(); return nil })
	cancel()
	require.NoError(t, rm.ReleaseAll(ctx))
	assert.NoError(t, seen)
}

func TestReleaseMap_Fork(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	parent := managed.NewReleaseMap()
	_, _ = parent.Add(ctx, func(context.Context) error { rec.add("parent"); return nil })

	child, err := parent.Fork(ctx)
	require.NoError(t, err)
	_, _ = child.Add(ctx, func(context.Context) error { rec.add("child"); return nil })

	require.NoError(t, parent.ReleaseAll(ctx))
	assert.Equal(t, []string{"child", "parent"}, rec.log)
}

func TestAllocate(t *testing.T) {
	rec := &recorder{}
	v, release, err := managed.Allocate(context.Background(), managed.Ensuring(rec.resource("a"), func(context.Context) error {
		rec.add("ensuring")
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	require.NoError(t, release(context.Background()))
	assert.Equal(t, []string{"acquire a", "release a", "ensuring"}, rec.log)
}
