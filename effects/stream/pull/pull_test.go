package pull_test

import (
	"context"
	"errors"
	"testing"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[A any](t *testing.T, p pull.Pull[A]) ([]A, error) {
	t.Helper()
	var out []A
	for {
		c, err := p(context.Background())
		if err != nil {
			return out, err
		}
		require.False(t, c.IsEmpty(), "pulls must not emit empty chunks")
		out = append(out, c.ToSlice()...)
	}
}

func TestEmit(t *testing.T) {
	out, err := drain(t, pull.Emit(chunk.Of(1, 2)))
	assert.True(t, pull.IsEnd(err))
	assert.Equal(t, []int{1, 2}, out)

	_, err = drain(t, pull.Emit(chunk.Empty[int]()))
	assert.ErrorIs(t, err, pull.ErrEnd)
}

func TestFromChunks_SkipsEmpty(t *testing.T) {
	p := pull.FromChunks(chunk.Of(1), chunk.Empty[int](), chunk.Of(2, 3))
	out, err := drain(t, p)
	assert.ErrorIs(t, err, pull.ErrEnd)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestFuse_TerminationIsPermanent(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	p := pull.Fuse(func(context.Context) (chunk.Chunk[int], error) {
		calls++
		if calls == 1 {
			return chunk.Of(1), nil
		}
		if calls == 2 {
			return chunk.Empty[int](), boom
		}
		return chunk.Of(99), nil
	})

	_, err := p(context.Background())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = p(context.Background())
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 2, calls)
}

func TestFuse_CancellationIsRetryable(t *testing.T) {
	calls := 0
	p := pull.Fuse(func(ctx context.Context) (chunk.Chunk[int], error) {
		calls++
		if err := ctx.Err(); err != nil {
			return chunk.Empty[int](), err
		}
		return chunk.Of(calls), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	c, err := p(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, c.ToSlice())
}

func TestHalt(t *testing.T) {
	c := cause.FromPanic("x")
	_, err := pull.Halt[int](c)(context.Background())
	assert.Equal(t, c, err)
	_, err = pull.End[int]()(context.Background())
	assert.True(t, pull.IsEnd(err))
}

func TestBuffered_PullElement(t *testing.T) {
	b := pull.NewBuffered(pull.FromChunks(chunk.Of(1, 2), chunk.Empty[int](), chunk.Of(3)))
	ctx := context.Background()

	var out []int
	for {
		a, err := b.PullElement(ctx)
		if pull.IsEnd(err) {
			break
		}
		require.NoError(t, err)
		out = append(out, a)
	}
	assert.Equal(t, []int{1, 2, 3}, out)

	_, err := b.PullElement(ctx)
	assert.ErrorIs(t, err, pull.ErrEnd)
	_, err = pull.IfNotDone(ctx, b, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, pull.ErrEnd)
}

func TestBuffered_PullChunkReturnsRemainder(t *testing.T) {
	b := pull.NewBuffered(pull.FromChunks(chunk.Of(1, 2, 3), chunk.Of(4)))
	ctx := context.Background()

	a, err := b.PullElement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, a)

	rest, err := b.PullChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, rest.ToSlice())

	next, err := b.PullChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, next.ToSlice())

	_, err = b.AsPull()(ctx)
	assert.ErrorIs(t, err, pull.ErrEnd)
}

func TestBuffered_PropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	b := pull.NewBuffered(pull.Fail[int](boom))
	_, err := b.PullElement(context.Background())
	assert.ErrorIs(t, err, boom)
}
