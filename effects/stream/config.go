package stream

import (
	"context"

	"github.com/on-the-ground/effect_ive_stream/effects/binding"
	"github.com/on-the-ground/effect_ive_stream/effects/configkeys"
)

const (
	DefaultChunkSize  = 64
	DefaultBufferSize = 16
)

// chunkSize is the batch size of sources that chunk on their own.
func chunkSize(ctx context.Context) int {
	if n := binding.LookupOr(ctx, configkeys.ConfigStreamChunkSize, DefaultChunkSize); n > 0 {
		return n
	}
	return DefaultChunkSize
}

// bufferSize is the output queue size of merges without an explicit buffer.
func bufferSize(ctx context.Context) int {
	if n := binding.LookupOr(ctx, configkeys.ConfigStreamBufferSize, DefaultBufferSize); n > 0 {
		return n
	}
	return DefaultBufferSize
}
