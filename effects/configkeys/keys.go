package configkeys

const (
	delimiter = "."

	ConfigPrefix = "config"

	ConfigStreamPrefix = ConfigPrefix + delimiter + "stream"

	// ConfigStreamChunkSize caps the chunks built by sources that batch on
	// their own (iterators, channels).
	ConfigStreamChunkSize = ConfigStreamPrefix + delimiter + "chunk_size"

	// ConfigStreamBufferSize sizes the output queue of merges that do not
	// take an explicit buffer.
	ConfigStreamBufferSize = ConfigStreamPrefix + delimiter + "buffer_size"

	ConfigEffectPrefix = ConfigPrefix + delimiter + "effect"

	ConfigEffectLogPrefix = ConfigEffectPrefix + delimiter + "log"

	ConfigEffectLogHandlerPrefix     = ConfigEffectLogPrefix + delimiter + "handler"
	ConfigEffectLogHandlerBufferSize = ConfigEffectLogHandlerPrefix + delimiter + "buffer_size"
)
