// Package ollama implements llm.Provider against a local or remote
// Ollama server.
//
// Streaming uses the NDJSON /api/chat endpoint. Each response line holds
// one message delta; the reader goroutine selects on ctx.Done for every
// send, so cancelling the request context deterministically closes the
// HTTP body even when the consumer stops reading mid-stream (early exit
// on a character cap, for example). Deltas are passed through a UTF-8
// boundary buffer so consumers never observe a split rune.
package ollama
