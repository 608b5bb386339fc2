package handlers

import (
	"context"

	"github.com/google/uuid"
)

// effectScope ties a dispatcher to the lifetime of a handler.
//
// A scope is owned by the code that registered the handler: Close is meant
// to be called once, from that owner, through the teardown returned by the
// WithXxxEffectHandler constructors.
type effectScope[T any] struct {
	EffectId   string
	dispatcher WorkerDispatcher[T]
	done       <-chan struct{}
	closeFn    func()
	closed     bool
}

func (es *effectScope[T]) Close() {
	if !es.closed {
		es.closeFn()
		es.closed = true
	}
}

// Done is closed once the handler stopped serving.
func (es *effectScope[T]) Done() <-chan struct{} {
	return es.done
}

// send hands msg to its worker, giving up when either the caller or the
// handler goes away.
func (es *effectScope[T]) send(ctx context.Context, msg T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-es.done:
		return false
	default:
	}
	select {
	case <-ctx.Done():
		return false
	case <-es.done:
		return false
	case es.dispatcher.GetChannelOf(msg) <- msg:
		return true
	}
}

func newEffectScope[T any](
	ctx context.Context,
	newDispatcher func(context.Context) WorkerDispatcher[T],
	teardown func(),
) *effectScope[T] {
	ctx, cancelFn := context.WithCancel(ctx)
	return &effectScope[T]{
		EffectId:   uuid.New().String(),
		dispatcher: newDispatcher(ctx),
		done:       ctx.Done(),
		closeFn: func() {
			cancelFn()
			teardown()
		},
		closed: false,
	}
}
