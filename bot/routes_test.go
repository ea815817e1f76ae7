package bot

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepbot/chat/telegram"
)

func TestWebhook_RejectsBadSecret(t *testing.T) {
	app := newTestApp(t, &fakeProvider{}, &fakeTransport{})
	app.cfg.Telegram.WebhookSecret = "s3cret"
	srv := httptest.NewServer(app.Routes())
	defer srv.Close()

	body := `{"update_id":1,"message":{"message_id":1,"chat":{"id":100},"text":"/help"}}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+app.cfg.Telegram.WebhookPath, strings.NewReader(body))
	req.Header.Set(telegram.SecretHeader, "wrong")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebhook_RejectsMalformedBody(t *testing.T) {
	app := newTestApp(t, &fakeProvider{}, &fakeTransport{})
	srv := httptest.NewServer(app.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+app.cfg.Telegram.WebhookPath, "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_AcksAndProcessesInBackground(t *testing.T) {
	tr := &fakeTransport{}
	app := newTestApp(t, &fakeProvider{}, tr)
	app.cfg.Telegram.WebhookSecret = "s3cret"
	srv := httptest.NewServer(app.Routes())
	defer srv.Close()

	body := `{"update_id":1,"message":{"message_id":1,"chat":{"id":100},"text":"/help"}}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+app.cfg.Telegram.WebhookPath, strings.NewReader(body))
	req.Header.Set(telegram.SecretHeader, "s3cret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		sends, _ := tr.snapshot()
		return len(sends) == 1 && strings.Contains(sends[0], "PrepBot")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, &fakeProvider{}, &fakeTransport{})
	srv := httptest.NewServer(app.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
