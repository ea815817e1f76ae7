// Package bot wires the webhook surface to the gate, the model provider,
// and the streaming session: one update in, one gated and throttled
// reply out. It owns command dispatch, update deduplication, analytics
// recording, and the HTTP routes the listeners serve.
package bot
