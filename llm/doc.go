// Package llm defines the provider-neutral chat types, the structured
// error taxonomy, and the Provider interface implemented by concrete
// backends (see llm/ollama).
//
// Streaming is channel-based: Provider.Stream returns a receive-only
// channel of StreamChunk values. The channel is closed when the upstream
// stream ends, fails, or the caller cancels the context. Stream errors
// travel in-band via StreamChunk.Err so a consumer can drain a single
// channel without a separate error path.
package llm
