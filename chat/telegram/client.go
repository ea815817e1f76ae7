package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prepline/prepbot/chat"
)

// Config configures the Bot API client.
type Config struct {
	Token   string        `yaml:"token" json:"-"`
	BaseURL string        `yaml:"base_url" json:"base_url"` // override for tests/self-hosted api servers
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// RatePerSecond caps outbound API calls; zero selects the Bot API's
	// documented global budget.
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "https://api.telegram.org",
		Timeout:       30 * time.Second,
		RatePerSecond: 30,
	}
}

// Client is a chat.Transport backed by the Telegram Bot API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Bot API client.
func New(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)),
		logger:  logger.With(zap.String("component", "telegram")),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// APIError is a non-OK Bot API response.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(data, &api); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !api.OK {
		if strings.Contains(strings.ToLower(api.Description), "message is not modified") {
			return chat.ErrNotModified
		}
		return &APIError{Method: method, Code: api.ErrorCode, Description: api.Description}
	}
	if result != nil && len(api.Result) > 0 {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// SendMessage implements chat.Transport.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	var sent chat.Message
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &sent)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage implements chat.Transport.
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

// SendChatAction implements chat.Transport.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	}, nil)
}

var _ chat.Transport = (*Client)(nil)

// DecodeUpdate parses one webhook update body.
func DecodeUpdate(r io.Reader) (*chat.Update, error) {
	var upd chat.Update
	if err := json.NewDecoder(r).Decode(&upd); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	return &upd, nil
}

// SecretHeader is the header Telegram echoes the webhook secret in.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// VerifySecret checks the webhook secret header. An empty configured
// secret disables verification.
func VerifySecret(r *http.Request, secret string) bool {
	return secret == "" || r.Header.Get(SecretHeader) == secret
}
