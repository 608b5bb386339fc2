package effects

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/internal/handlers"
	"github.com/on-the-ground/effect_ive_stream/effects/internal/helper"
	sharedHelper "github.com/on-the-ground/effect_ive_stream/shared/helper"

	effectmodel "github.com/on-the-ground/effect_ive_stream/effects/internal/model"
)

// WithResumablePartitionableEffectHandler registers a resumable effect handler for a given effect enum.
//
// This handler supports hash-based partitioning via PartitionKey(), and is suitable for effects
// like lookups where per-key ordering matters.
//
// Usage:
//
//	ctx, end := WithResumablePartitionableEffectHandler(ctx, config, MyEffectEnum, handleFn)
//	defer end()
func WithResumablePartitionableEffectHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P) (R, error),
	teardown ...func(),
) (context.Context, func() context.Context) {
	td := normalizeTeardown(teardown)
	handler := handlers.NewPartitionableResumableHandler(ctx, config, handleFn, td)
	ctxWith := context.WithValue(ctx, enum, handler)

	return ctxWith, func() context.Context {
		handler.Close()
		return ctx
	}
}

// WithResumableEffectHandler registers a resumable effect handler for a given effect enum.
//
// This handler is suitable for effects that don't require partitioning.
func WithResumableEffectHandler[P any, R any](
	ctx context.Context,
	bufferSize int,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P) (R, error),
	teardown ...func(),
) (context.Context, func() context.Context) {
	td := normalizeTeardown(teardown)
	handler := handlers.NewResumableHandler(ctx, bufferSize, handleFn, td)
	ctxWith := context.WithValue(ctx, enum, handler)

	return ctxWith, func() context.Context {
		handler.Close()
		return ctx
	}
}

// PerformResumableEffect sends a payload to the resumable effect handler and waits for the result.
//
// It returns model.ErrNoEffectHandler if nothing is registered for enum, and
// model.ErrEffectHandlerClosed if the handler stopped before answering.
func PerformResumableEffect[P any, R any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) (R, error) {
	var zero R
	handler, err := sharedHelper.GetTypedValueOf[handlers.ResumableHandler[P, R]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	if err != nil {
		return zero, err
	}

	select {
	case res, ok := <-handler.PerformEffect(ctx, payload):
		if !ok {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			return zero, effectmodel.ErrEffectHandlerClosed
		}
		return res.Value, res.Err
	case <-handler.Done():
		return zero, effectmodel.ErrEffectHandlerClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// WithFireAndForgetEffectHandler registers a fire-and-forget effect handler for a given effect enum.
//
// Suitable for one-shot effects like logging or telemetry.
// This handler executes without returning a result.
func WithFireAndForgetEffectHandler[P any](
	ctx context.Context,
	bufferSize int,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P),
	teardown ...func(),
) (context.Context, func() context.Context) {
	td := normalizeTeardown(teardown)
	handler := handlers.NewFireAndForgetHandler(ctx, bufferSize, handleFn, td)
	ctxWith := context.WithValue(ctx, enum, handler)

	return ctxWith, func() context.Context {
		handler.Close()
		return ctx
	}
}

// FireAndForgetEffect triggers a fire-and-forget effect for the given enum and payload.
//
// The handler will process the payload asynchronously.
// Panics if no handler is registered for the given enum.
func FireAndForgetEffect[P any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) {
	handler := sharedHelper.MustGetTypedValue[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	handler.FireAndForgetEffect(ctx, payload)
}

// TryFireAndForgetEffect is FireAndForgetEffect for optional effects: it
// reports false instead of panicking when no handler is registered.
func TryFireAndForgetEffect[P any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) bool {
	handler, err := sharedHelper.GetTypedValueOf[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	if err != nil {
		return false
	}
	return handler.FireAndForgetEffect(ctx, payload)
}

// normalizeTeardown flattens optional teardown functions into a single callable.
//
// Accepts either 0 or 1 teardown functions. Panics if more than one is passed.
func normalizeTeardown(teardown []func()) func() {
	switch len(teardown) {
	case 1:
		return teardown[0]
	case 0:
		return func() {}
	default:
		panic("normalizeTeardown: only one or zero teardown functions allowed")
	}
}

// EffectScopeConfig sizes the worker queues behind a partitionable handler.
type EffectScopeConfig = effectmodel.EffectScopeConfig

// NewEffectScopeConfig returns a config with non-positive values replaced by 1.
func NewEffectScopeConfig(bufferSize, numWorkers int) EffectScopeConfig {
	return effectmodel.NewEffectScopeConfig(bufferSize, numWorkers)
}

// ErrNoEffectHandler is returned when an effect is performed on a context
// without a matching handler.
var ErrNoEffectHandler = effectmodel.ErrNoEffectHandler
