package handlers

import (
	"context"

	effectmodel "github.com/on-the-ground/effect_ive_stream/effects/internal/model"
)

func NewFireAndForgetHandler[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
	teardown func(),
) FireAndForgetHandler[T] {
	return FireAndForgetHandler[T]{
		effectScope: newEffectScope(
			ctx,
			func(ctx context.Context) WorkerDispatcher[T] {
				return NewSingleQueue(ctx, bufferSize, handleFn)
			},
			teardown,
		),
	}
}

func NewPartitionableFireAndForgetHandler[T effectmodel.Partitionable](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, T),
	teardown func(),
) FireAndForgetHandler[T] {
	return FireAndForgetHandler[T]{
		effectScope: newEffectScope(
			ctx,
			func(ctx context.Context) WorkerDispatcher[T] {
				return NewPartitionedQueue(ctx, config.NumWorkers, config.BufferSize, handleFn)
			},
			teardown,
		),
	}
}

type FireAndForgetHandler[T any] struct {
	*effectScope[T]
}

// FireAndForgetEffect enqueues payload and returns without waiting for it to
// be handled. It reports whether the payload was accepted.
func (ffh FireAndForgetHandler[T]) FireAndForgetEffect(ctx context.Context, payload T) bool {
	return ffh.send(ctx, payload)
}
