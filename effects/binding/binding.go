package binding

import (
	"context"
	"errors"
	"fmt"

	"github.com/on-the-ground/effect_ive_stream/effects"
	effectmodel "github.com/on-the-ground/effect_ive_stream/effects/internal/model"
	"github.com/on-the-ground/effect_ive_stream/shared/helper"
)

// ErrKeyNotFound is returned when neither this scope nor any upper scope binds a key.
var ErrKeyNotFound = errors.New("key not found")

// Payload defines a key-based lookup payload.
// Used as input to the Binding effect.
type Payload string

// PartitionKey routes lookups of the same key to the same worker.
func (bp Payload) PartitionKey() string {
	return string(bp)
}

// WithEffectHandler registers a resumable, partitionable effect handler for bindings.
//
//   - Accepts a key-value map used for lookups.
//   - Allows fallback to upper scopes if a key is not found locally.
//   - Returns a context with the effect handler registered.
//   - Returns a teardown function to close the handler.
//   - If the teardown function is called early, the effect handler will be closed,
//     you should use the context returned by the teardown function.
func WithEffectHandler(
	ctx context.Context,
	config effects.EffectScopeConfig,
	bindingMap map[string]any,
) (context.Context, func() context.Context) {
	bindingHandler := &bindingHandler{
		bindingMap: normalizeBindingMap(bindingMap),
	}
	return effects.WithResumablePartitionableEffectHandler(
		ctx,
		config,
		effectmodel.EffectBinding,
		bindingHandler.handle,
	)
}

// Effect performs a key-based lookup using the Binding effect handler.
//
// Returns either the value found or an error if the key is not found and no upper scope provides it.
func Effect(ctx context.Context, key string) (any, error) {
	return effects.PerformResumableEffect[Payload, any](ctx, effectmodel.EffectBinding, Payload(key))
}

// Lookup is the typed variant of Effect.
func Lookup[T any](ctx context.Context, key string) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return Effect(ctx, key)
	})
}

// LookupOr returns the bound value of key, or fallback when the key is unbound,
// mistyped, or no binding handler is registered.
func LookupOr[T any](ctx context.Context, key string, fallback T) T {
	if v, err := Lookup[T](ctx, key); err == nil {
		return v
	}
	return fallback
}

// normalizeBindingMap is an internal helper for normalizing binding map.
func normalizeBindingMap(bm map[string]any) map[string]any {
	if bm == nil {
		bm = make(map[string]any)
	}
	return bm
}

// bindingHandler
type bindingHandler struct {
	bindingMap map[string]any
}

// handle looks up the key in the local bindingMap.
// - If found: returns the value.
// - If not found: delegates to the handler of the scope this one was registered in.
// - Otherwise: returns a key-not-found error.
func (bh bindingHandler) handle(upperCtx context.Context, payload Payload) (any, error) {
	key := string(payload)
	if v, ok := bh.bindingMap[key]; ok {
		return v, nil
	}

	v, err := Effect(upperCtx, key)
	if errors.Is(err, effectmodel.ErrNoEffectHandler) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, err
}
