// Package effects is the root of effect_ive_stream: a chunked, pull-based
// streaming toolkit for Go with resource-safe scopes and concurrency
// combinators.
//
// # Layout
//
// The substrate lives in small packages that mirror the building blocks of
// an effect runtime, expressed with goroutines, channels and context:
//
//   - cause: reified failures (typed failure, panic, interruption) that compose
//   - ref, promise, queue, semaphore: shared state and coordination
//   - fiber: forked goroutines that can be joined, polled and interrupted
//   - managed: scoped acquisition with ordered, exactly-once release
//   - clock: live and virtual time bound to a context
//
// The streaming protocol builds on top of it:
//
//   - stream/chunk: immutable batches with O(1) concatenation
//   - stream/pull and stream/take: the producer protocol and its reified outcome
//   - stream/sink: the consumer protocol (More / Done / Failed with leftovers)
//   - stream: producers, transformations and the concurrent combinators
//     (buffering, throttling, bounded fan-out, group-by)
//
// # Handlers
//
// Ambient concerns follow the effect-handler pattern: a handler is registered
// on a context and every call below that context delegates to it.
//
//	ctx, endOfLog := log.WithZapLogEffectHandler(ctx, 16, logger)
//	defer endOfLog()
//
//	ctx, endOfBinding := binding.WithEffectHandler(ctx, config, map[string]any{
//	    configkeys.ConfigStreamChunkSize: 256,
//	})
//	defer endOfBinding()
//
// Handlers are scoped, explicit and never global: without a log handler
// nothing is logged, without a binding handler defaults apply.
package effects
