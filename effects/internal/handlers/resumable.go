package handlers

import (
	"context"

	effectmodel "github.com/on-the-ground/effect_ive_stream/effects/internal/model"
)

func NewResumableHandler[P any, R any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	return ResumableHandler[P, R]{
		effectScope: newEffectScope(
			ctx,
			func(ctx context.Context) WorkerDispatcher[ResumableEffectMessage[P, R]] {
				return NewSingleQueue(ctx, bufferSize, resume(handleFn))
			},
			teardown,
		),
	}
}

func NewPartitionableResumableHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	return ResumableHandler[P, R]{
		effectScope: newEffectScope(
			ctx,
			func(ctx context.Context) WorkerDispatcher[ResumableEffectMessage[P, R]] {
				return NewPartitionedQueue(ctx, config.NumWorkers, config.BufferSize, resume(handleFn))
			},
			teardown,
		),
	}
}

func resume[P, R any](handleFn func(context.Context, P) (R, error)) func(context.Context, ResumableEffectMessage[P, R]) {
	return func(ctx context.Context, msg ResumableEffectMessage[P, R]) {
		// ResumeCh has room for exactly one result.
		msg.ResumeCh <- ResumableResultFrom(handleFn(ctx, msg.Payload))
		close(msg.ResumeCh)
	}
}

type ResumableHandler[P any, R any] struct {
	*effectScope[ResumableEffectMessage[P, R]]
}

// PerformEffect sends payload to the handler. The returned channel yields one
// result, or is closed without a value if the payload could not be delivered.
func (rh ResumableHandler[P, R]) PerformEffect(ctx context.Context, payload P) <-chan ResumableResult[R] {
	resumeCh := make(chan ResumableResult[R], 1)

	msg := ResumableEffectMessage[P, R]{
		Payload:  payload,
		ResumeCh: resumeCh,
	}
	if !rh.send(ctx, msg) {
		close(resumeCh)
	}

	return resumeCh
}

// ResumableResult represents the result of handled effects.
type ResumableResult[T any] struct {
	Value T
	Err   error
}

func ResumableResultFrom[R any](res R, err error) ResumableResult[R] {
	return ResumableResult[R]{Value: res, Err: err}
}

var _ effectmodel.Partitionable = ResumableEffectMessage[any, any]{}

type ResumableEffectMessage[P any, R any] struct {
	Payload  P
	ResumeCh chan ResumableResult[R]
}

func (rem ResumableEffectMessage[P, R]) PartitionKey() string {
	if p, ok := any(rem.Payload).(effectmodel.Partitionable); ok {
		return p.PartitionKey()
	}
	return ""
}
