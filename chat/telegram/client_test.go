package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepline/prepbot/chat"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Token: "TEST:TOKEN", BaseURL: srv.URL, RatePerSecond: 1000}, zap.NewNop())
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTEST:TOKEN/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 42, body["chat_id"])
		assert.Equal(t, "hello", body["text"])
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"chat":{"id":42}}}`))
	})

	id, err := c.SendMessage(context.Background(), 42, "hello")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestEditMessage_NotModifiedIsSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`))
	})

	err := c.EditMessage(context.Background(), 42, 7, "same text")
	assert.ErrorIs(t, err, chat.ErrNotModified)
}

func TestEditMessage_OtherErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})

	err := c.EditMessage(context.Background(), 42, 7, "text")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.NotErrorIs(t, err, chat.ErrNotModified)
}

func TestSendChatAction(t *testing.T) {
	var gotAction string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotAction, _ = body["action"].(string)
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	require.NoError(t, c.SendChatAction(context.Background(), 42, chat.ActionTyping))
	assert.Equal(t, "typing", gotAction)
}

func TestDecodeUpdate(t *testing.T) {
	body := `{"update_id":9000,"message":{"message_id":5,"chat":{"id":-100,"type":"group"},"from":{"id":1,"username":"sam"},"text":"storm prep?"}}`
	upd, err := DecodeUpdate(strings.NewReader(body))
	require.NoError(t, err)
	assert.EqualValues(t, 9000, upd.UpdateID)
	require.NotNil(t, upd.Message)
	assert.EqualValues(t, -100, upd.Message.Chat.ID)
	assert.Equal(t, "storm prep?", upd.Message.Text)
}

func TestVerifySecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	assert.True(t, VerifySecret(req, ""), "empty secret disables verification")
	assert.False(t, VerifySecret(req, "s3cret"))

	req.Header.Set(SecretHeader, "s3cret")
	assert.True(t, VerifySecret(req, "s3cret"))
}
