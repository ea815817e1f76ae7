package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prepline/prepbot/chat"
)

// Config bounds one streaming session.
type Config struct {
	// Cap is the maximum number of buffered characters. Reaching it
	// truncates the reply and stops upstream consumption.
	Cap int `yaml:"cap" json:"cap"`

	// Marker is appended exactly once when the cap truncates the buffer.
	Marker string `yaml:"marker" json:"marker"`

	// MaxLen is the transport's single-message limit.
	MaxLen int `yaml:"max_len" json:"max_len"`

	// MinInterval is the minimum spacing between live edits.
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`

	// Placeholder stands in for an empty visible message.
	Placeholder string `yaml:"placeholder" json:"placeholder"`

	// EmptyFinal replaces a reply that ended with no content at all.
	EmptyFinal string `yaml:"empty_final" json:"empty_final"`

	// SessionTimeout bounds the whole stream, including upstream
	// fragment waits. Applied by the caller via context.
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Cap:            3500,
		Marker:         "\n\n…(truncated for length)",
		MaxLen:         chat.MaxMessageLen,
		MinInterval:    250 * time.Millisecond,
		Placeholder:    "…",
		EmptyFinal:     "No response.",
		SessionTimeout: 2 * time.Minute,
	}
}

// Session drives the delivery of one streamed reply into one visible
// message (plus overflow messages at finalize). It is single-goroutine:
// one session is owned by one handler.
type Session struct {
	cfg       Config
	transport chat.Transport
	chatID    int64
	messageID int
	logger    *zap.Logger

	buf          []rune
	truncated    bool
	finalized    bool
	lastSnapshot string
	lastRender   time.Time

	now func() time.Time // monotonic; replaceable in tests
}

// NewSession starts a session editing the given placeholder message.
func NewSession(transport chat.Transport, chatID int64, messageID int, cfg Config, logger *zap.Logger) *Session {
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = chat.MaxMessageLen
	}
	return &Session{
		cfg:          cfg,
		transport:    transport,
		chatID:       chatID,
		messageID:    messageID,
		logger:       logger.With(zap.String("component", "stream")),
		lastSnapshot: cfg.Placeholder,
		now:          time.Now,
	}
}

// Append adds one fragment to the buffer. It returns true once the cap
// has been reached: the buffer is cut to exactly Cap characters, the
// truncation marker is appended once, and the caller must cancel the
// upstream stream rather than wait for it to finish.
func (s *Session) Append(fragment string) (full bool) {
	if s.truncated {
		return true
	}
	if fragment == "" {
		return false
	}
	s.buf = append(s.buf, []rune(fragment)...)
	if s.cfg.Cap > 0 && len(s.buf) >= s.cfg.Cap {
		s.buf = append(s.buf[:s.cfg.Cap], []rune(s.cfg.Marker)...)
		s.truncated = true
		return true
	}
	return false
}

// Truncated reports whether the cap cut the reply short.
func (s *Session) Truncated() bool { return s.truncated }

// Len returns the buffered character count.
func (s *Session) Len() int { return len(s.buf) }

// Text returns the full buffered text.
func (s *Session) Text() string { return string(s.buf) }

// Render issues a live update if both gates pass: the visible window
// (the buffer tail once past MaxLen) must differ from the last rendered
// snapshot, and MinInterval must have elapsed since the last write. An
// ErrNotModified from the transport counts as a successful no-op; any
// other transport error aborts the session.
func (s *Session) Render(ctx context.Context) error {
	display := s.tailWindow()
	if display == "" {
		display = s.cfg.Placeholder
	}
	if display == s.lastSnapshot {
		return nil
	}
	if s.cfg.MinInterval > 0 && s.now().Sub(s.lastRender) < s.cfg.MinInterval {
		return nil
	}

	if err := s.transport.EditMessage(ctx, s.chatID, s.messageID, display); err != nil && !errors.Is(err, chat.ErrNotModified) {
		return fmt.Errorf("render edit: %w", err)
	}
	s.lastRender = s.now()
	s.lastSnapshot = display
	return nil
}

// Finalize reconciles the visible message with the head of the final
// text and delivers the remainder as ordered overflow messages. It runs
// exactly once per session; the mandatory reconciliation write is not
// subject to the render interval.
func (s *Session) Finalize(ctx context.Context) error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	full := s.buf
	if len(full) == 0 {
		full = []rune(s.cfg.EmptyFinal)
	}

	first := string(full[:min(len(full), s.cfg.MaxLen)])
	if first == "" {
		first = s.cfg.Placeholder
	}
	if first != s.lastSnapshot {
		if err := s.transport.EditMessage(ctx, s.chatID, s.messageID, first); err != nil && !errors.Is(err, chat.ErrNotModified) {
			return fmt.Errorf("finalize edit: %w", err)
		}
		s.lastSnapshot = first
	}

	for i := s.cfg.MaxLen; i < len(full); i += s.cfg.MaxLen {
		chunk := string(full[i:min(len(full), i+s.cfg.MaxLen)])
		if _, err := s.transport.SendMessage(ctx, s.chatID, chunk); err != nil {
			return fmt.Errorf("finalize overflow at %d: %w", i, err)
		}
	}

	s.logger.Debug("session finalized",
		zap.Int("chars", len(s.buf)),
		zap.Bool("truncated", s.truncated),
	)
	return nil
}

// tailWindow returns the visible slice while streaming: the whole buffer
// until it exceeds MaxLen, then the most recent MaxLen characters.
func (s *Session) tailWindow() string {
	if len(s.buf) <= s.cfg.MaxLen {
		return string(s.buf)
	}
	return string(s.buf[len(s.buf)-s.cfg.MaxLen:])
}
