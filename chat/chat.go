// Package chat defines the transport-neutral chat surface: webhook update
// types, the Transport interface implemented by concrete backends (see
// chat/telegram), and the ErrNotModified sentinel that distinguishes an
// idempotent no-op edit from a real transport failure.
package chat

import (
	"context"
	"errors"
)

// MaxMessageLen is the transport's documented single-message limit.
// Telegram rejects sendMessage/editMessageText payloads past 4096
// characters.
const MaxMessageLen = 4096

// ErrNotModified reports an edit whose text already matches the message.
// Transports must return it (possibly wrapped) for that case; callers
// treat it as success.
var ErrNotModified = errors.New("chat: message is not modified")

// ActionTyping is the "typing…" chat action.
const ActionTyping = "typing"

// Update is one inbound webhook event.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an inbound or referenced chat message.
type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Transport is the outbound chat surface. Implementations enforce
// MaxMessageLen and are safe for concurrent use across sessions.
type Transport interface {
	// SendMessage posts a new message and returns its message ID.
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)

	// EditMessage replaces the text of an existing message. Editing to
	// identical content returns ErrNotModified.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error

	// SendChatAction shows a transient status such as ActionTyping.
	SendChatAction(ctx context.Context, chatID int64, action string) error
}
