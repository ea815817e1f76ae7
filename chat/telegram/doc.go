// Package telegram implements chat.Transport against the Telegram Bot
// API.
//
// All calls go through a shared rate limiter (the Bot API allows roughly
// thirty requests per second across chats) and map the API's "message is
// not modified" BadRequest to chat.ErrNotModified so callers can treat
// identical edits as idempotent no-ops.
package telegram
