package bot

import (
	"context"
	"errors"

	"github.com/prepline/prepbot/chat"
	"github.com/prepline/prepbot/internal/metrics"
)

// meteredTransport counts every outbound transport call by result, so
// edit/send accounting covers placeholders, live renders, finalize
// writes, and canned replies alike.
type meteredTransport struct {
	inner   chat.Transport
	metrics *metrics.Collector
}

func (m meteredTransport) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	id, err := m.inner.SendMessage(ctx, chatID, text)
	if err != nil {
		m.metrics.RecordSend("error")
	} else {
		m.metrics.RecordSend("ok")
	}
	return id, err
}

func (m meteredTransport) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	err := m.inner.EditMessage(ctx, chatID, messageID, text)
	switch {
	case err == nil:
		m.metrics.RecordEdit("ok")
	case errors.Is(err, chat.ErrNotModified):
		m.metrics.RecordEdit("not_modified")
	default:
		m.metrics.RecordEdit("error")
	}
	return err
}

func (m meteredTransport) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return m.inner.SendChatAction(ctx, chatID, action)
}

var _ chat.Transport = meteredTransport{}
