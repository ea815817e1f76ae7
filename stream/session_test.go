package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepline/prepbot/chat"
)

// fakeTransport records writes and can fail or report no-op edits.
type fakeTransport struct {
	edits      []string
	sends      []string
	editErr    error
	sendErr    error
	nextSendID int
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sends = append(f.sends, text)
	f.nextSendID++
	return f.nextSendID, nil
}

func (f *fakeTransport) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeTransport) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return nil
}

// fakeClock advances only when told to, standing in for the monotonic clock.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSession(tr chat.Transport, cfg Config) (*Session, *fakeClock) {
	s := NewSession(tr, 1, 100, cfg, zap.NewNop())
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s.now = clk.now
	return s, clk
}

func TestAppend_UnderCapKeepsExactConcatenation(t *testing.T) {
	s, _ := newTestSession(&fakeTransport{}, DefaultConfig())

	frags := []string{"Hello ", "world", ", how", " are you?"}
	for _, f := range frags {
		assert.False(t, s.Append(f))
	}
	assert.Equal(t, strings.Join(frags, ""), s.Text())
	assert.False(t, s.Truncated())
	assert.NotContains(t, s.Text(), DefaultConfig().Marker)
}

func TestAppend_CapTruncatesOnceAndSignalsStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cap = 20
	s, _ := newTestSession(&fakeTransport{}, cfg)

	assert.False(t, s.Append("Hello "))
	assert.True(t, s.Append("world, this is a test message"))

	want := []rune("Hello world, this is a test message")[:20]
	assert.Equal(t, string(want)+cfg.Marker, s.Text())
	assert.True(t, s.Truncated())

	// Further fragments are ignored and keep signalling stop.
	assert.True(t, s.Append("more"))
	assert.Equal(t, string(want)+cfg.Marker, s.Text())
}

func TestRender_TailWindowAndNoopSuppression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLen = 10
	cfg.MinInterval = 0
	tr := &fakeTransport{}
	s, _ := newTestSession(tr, cfg)

	s.Append("0123456789ABCDE")
	require.NoError(t, s.Render(context.Background()))
	require.Len(t, tr.edits, 1)
	assert.Equal(t, "56789ABCDE", tr.edits[0], "tail-anchored while streaming")

	// Identical window: no second write.
	require.NoError(t, s.Render(context.Background()))
	assert.Len(t, tr.edits, 1)
}

func TestRender_RateLimitUsesInterval(t *testing.T) {
	cfg := DefaultConfig()
	tr := &fakeTransport{}
	s, clk := newTestSession(tr, cfg)

	s.Append("one")
	require.NoError(t, s.Render(context.Background()))
	require.Len(t, tr.edits, 1)

	// Content changed but interval not elapsed: skipped.
	s.Append(" two")
	require.NoError(t, s.Render(context.Background()))
	assert.Len(t, tr.edits, 1)

	clk.advance(cfg.MinInterval)
	require.NoError(t, s.Render(context.Background()))
	require.Len(t, tr.edits, 2)
	assert.Equal(t, "one two", tr.edits[1])
}

func TestRender_NotModifiedIsSuccess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	tr := &fakeTransport{editErr: chat.ErrNotModified}
	s, _ := newTestSession(tr, cfg)

	s.Append("hello")
	require.NoError(t, s.Render(context.Background()))

	// Snapshot advanced despite the no-op: same content won't re-render
	// once the transport recovers.
	tr.editErr = nil
	require.NoError(t, s.Render(context.Background()))
	assert.Empty(t, tr.edits)
}

func TestRender_TransportErrorPropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	boom := errors.New("forbidden")
	tr := &fakeTransport{editErr: boom}
	s, _ := newTestSession(tr, cfg)

	s.Append("hello")
	err := s.Render(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestFinalize_HeadAnchoredWithOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLen = 10
	cfg.MinInterval = 0
	tr := &fakeTransport{}
	s, _ := newTestSession(tr, cfg)

	text := "abcdefghijKLMNOPQRSTuvwxy" // 25 chars
	s.Append(text)
	require.NoError(t, s.Finalize(context.Background()))

	require.NotEmpty(t, tr.edits)
	assert.Equal(t, "abcdefghij", tr.edits[len(tr.edits)-1], "head-anchored at finalize")
	require.Len(t, tr.sends, 2)
	assert.Equal(t, "KLMNOPQRST", tr.sends[0])
	assert.Equal(t, "uvwxy", tr.sends[1])
	assert.Equal(t, text, tr.edits[len(tr.edits)-1]+tr.sends[0]+tr.sends[1])
}

func TestFinalize_SkipsEditWhenSnapshotMatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	tr := &fakeTransport{}
	s, _ := newTestSession(tr, cfg)

	s.Append("short reply")
	require.NoError(t, s.Render(context.Background()))
	require.Len(t, tr.edits, 1)

	require.NoError(t, s.Finalize(context.Background()))
	assert.Len(t, tr.edits, 1, "window already visible, no reconciliation edit")
	assert.Empty(t, tr.sends)
}

func TestFinalize_EmptyReplyUsesFallback(t *testing.T) {
	cfg := DefaultConfig()
	tr := &fakeTransport{}
	s, _ := newTestSession(tr, cfg)

	require.NoError(t, s.Finalize(context.Background()))
	require.Len(t, tr.edits, 1)
	assert.Equal(t, cfg.EmptyFinal, tr.edits[0])
}

func TestFinalize_RunsOnce(t *testing.T) {
	cfg := DefaultConfig()
	tr := &fakeTransport{}
	s, _ := newTestSession(tr, cfg)

	s.Append("some reply")
	require.NoError(t, s.Finalize(context.Background()))
	writes := len(tr.edits) + len(tr.sends)

	require.NoError(t, s.Finalize(context.Background()))
	assert.Equal(t, writes, len(tr.edits)+len(tr.sends))
}

func TestFinalize_OverflowFailureAbortsRemaining(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLen = 5
	tr := &fakeTransport{sendErr: errors.New("network down")}
	s, _ := newTestSession(tr, cfg)

	s.Append("0123456789abcde")
	err := s.Finalize(context.Background())
	require.Error(t, err)
	assert.Empty(t, tr.sends)
}

func TestRender_EmptyBufferShowsPlaceholder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	tr := &fakeTransport{}
	s, _ := newTestSession(tr, cfg)

	// Placeholder is already visible; rendering an empty buffer is a no-op.
	require.NoError(t, s.Render(context.Background()))
	assert.Empty(t, tr.edits)
}
