package effectmodel

import "errors"

type EffectEnum string

const (
	EffectLog     EffectEnum = "effect_ive_stream_effect_enum_log"
	EffectBinding EffectEnum = "effect_ive_stream_effect_enum_binding"
	EffectClock   EffectEnum = "effect_ive_stream_effect_enum_clock"
)

// ErrNoEffectHandler is returned when no handler is registered in the context
// for the requested effect.
var ErrNoEffectHandler = errors.New("no effect handler registered for this effect")

// ErrEffectHandlerClosed is returned when a handler stopped before it could
// answer a resumable effect.
var ErrEffectHandlerClosed = errors.New("effect handler closed")

type EffectScopeConfig struct {
	BufferSize int // default: 1
	NumWorkers int // default: 1
}

func NewEffectScopeConfig(bufferSize int, numWorkers int) EffectScopeConfig {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return EffectScopeConfig{
		BufferSize: bufferSize,
		NumWorkers: numWorkers,
	}
}

type Partitionable interface {
	PartitionKey() string
}
