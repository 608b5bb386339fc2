package cause_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestFromError(t *testing.T) {
	assert.Nil(t, cause.FromError(nil))

	c := cause.FromError(errBoom)
	assert.Equal(t, cause.Fail{Err: errBoom}, c)
	assert.ErrorIs(t, c, errBoom)

	assert.IsType(t, cause.Interrupt{}, cause.FromError(context.Canceled))
	assert.IsType(t, cause.Interrupt{}, cause.FromError(fmt.Errorf("pull: %w", context.Canceled)))

	die := cause.FromPanic("oops")
	assert.Equal(t, die, cause.FromError(die), "causes pass through unchanged")
}

func TestFromError_WrappedCauseIsNotUnwrapped(t *testing.T) {
	wrapped := fmt.Errorf("stage 2: %w", cause.Fail{Err: errBoom})
	c := cause.FromError(wrapped)
	assert.Equal(t, cause.Fail{Err: wrapped}, c)
	assert.ErrorIs(t, c, errBoom)
}

func TestInterrupt_IsCanceled(t *testing.T) {
	id := uuid.New()
	c := cause.InterruptedBy(id)
	assert.ErrorIs(t, c, context.Canceled)
	assert.Contains(t, c.Error(), id.String())
}

func TestComposition(t *testing.T) {
	other := errors.New("other")
	both := cause.Parallel(cause.Fail{Err: errBoom}, cause.InterruptedBy(uuid.New()))
	seq := cause.Sequential(both, cause.Fail{Err: other})

	assert.Equal(t, []error{errBoom, other}, cause.Failures(seq))
	assert.True(t, cause.Interrupted(seq))
	assert.False(t, cause.IsInterruptedOnly(seq))
	assert.ErrorIs(t, seq, other)
	assert.ErrorIs(t, seq, errBoom)
	assert.Equal(t, errBoom, cause.Squash(seq))
	assert.Contains(t, both.Error(), "boom")

	assert.Equal(t, cause.Fail{Err: errBoom}, cause.Sequential(nil, cause.Fail{Err: errBoom}))
	assert.Equal(t, cause.Fail{Err: errBoom}, cause.Parallel(cause.Fail{Err: errBoom}, nil))
}

func TestIsInterruptedOnly(t *testing.T) {
	a := cause.InterruptedBy(uuid.New())
	b := cause.InterruptedBy(uuid.New())
	assert.True(t, cause.IsInterruptedOnly(cause.Parallel(a, b)))
	assert.False(t, cause.IsInterruptedOnly(nil))
	assert.False(t, cause.IsInterruptedOnly(cause.FromPanic(1)))
}

func TestSquash_PrefersDefectOverInterrupt(t *testing.T) {
	die := cause.FromPanic(errBoom)
	c := cause.Parallel(cause.InterruptedBy(uuid.New()), die)
	assert.Equal(t, die, cause.Squash(c))
	assert.ErrorIs(t, die, errBoom)
	assert.Nil(t, cause.Squash(nil))
}

func TestCatch(t *testing.T) {
	v, err := cause.Catch(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = cause.Catch(func() (int, error) { return 0, errBoom })
	assert.Equal(t, errBoom, err)

	_, err = cause.Catch(func() (int, error) { panic("bad") })
	var die cause.Die
	require.ErrorAs(t, err, &die)
	assert.Equal(t, "bad", die.Value)
}
