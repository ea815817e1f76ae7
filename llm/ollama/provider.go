package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prepline/prepbot/llm"
)

// Config configures the Ollama provider.
type Config struct {
	BaseURL string        `yaml:"url" json:"url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"` // per non-streaming request

	// KeepAlive controls how long the model stays loaded after a request
	// ("30m", "-1" for forever). Empty leaves the server default.
	KeepAlive string `yaml:"keep_alive" json:"keep_alive"`
}

// DefaultConfig returns defaults matching a local Ollama install.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://127.0.0.1:11434",
		Model:     "qwen2.5",
		Timeout:   60 * time.Second,
		KeepAlive: "30m",
	}
}

// Provider is an llm.Provider backed by an Ollama server.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates an Ollama provider. The HTTP client carries no timeout;
// streaming responses are bounded by the request context instead.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger.With(zap.String("component", "ollama")),
	}
}

func (p *Provider) Name() string { return "ollama" }

// --- wire types ---

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []wireMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	Options   map[string]any `json:"options,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model     string      `json:"model"`
	Message   wireMessage `json:"message"`
	Done      bool        `json:"done"`
	DoneRsn   string      `json:"done_reason,omitempty"`
	Error     string      `json:"error,omitempty"`
	EvalCount int         `json:"eval_count,omitempty"`
	PromptEC  int         `json:"prompt_eval_count,omitempty"`
}

func (p *Provider) buildBody(req *llm.ChatRequest, stream bool) ([]byte, error) {
	msgs := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	opts := map[string]any{}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if req.ContextWindow > 0 {
		opts["num_ctx"] = req.ContextWindow
	}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		opts["top_p"] = req.TopP
	}
	if req.RepeatPenalty > 0 {
		opts["repeat_penalty"] = req.RepeatPenalty
	}
	if len(req.Stop) > 0 {
		opts["stop"] = req.Stop
	}
	if len(opts) == 0 {
		opts = nil
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	keepAlive := req.KeepAlive
	if keepAlive == "" {
		keepAlive = p.cfg.KeepAlive
	}

	return json.Marshal(chatRequest{
		Model:     model,
		Messages:  msgs,
		Stream:    stream,
		Options:   opts,
		KeepAlive: keepAlive,
	})
}

func (p *Provider) post(ctx context.Context, path string, payload []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body), p.Name())
	}
	return resp, nil
}

// Completion issues a non-streaming chat request.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	payload, err := p.buildBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	resp, err := p.post(ctx, "/api/chat", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: fmt.Sprintf("decode response: %v", err),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	if out.Error != "" {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: out.Error,
			HTTPStatus: http.StatusBadGateway, Provider: p.Name(),
		}
	}

	return &llm.ChatResponse{
		Provider: p.Name(),
		Model:    out.Model,
		Message:  llm.Message{Role: llm.RoleAssistant, Content: out.Message.Content},
		Usage: llm.ChatUsage{
			PromptTokens:     out.PromptEC,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEC + out.EvalCount,
		},
		CreatedAt: time.Now(),
	}, nil
}

// Stream issues a streaming chat request and returns the delta channel.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	payload, err := p.buildBody(req, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.post(ctx, "/api/chat", payload)
	if err != nil {
		return nil, err
	}

	return streamNDJSON(ctx, resp.Body, p.Name()), nil
}

// streamNDJSON parses Ollama's line-delimited JSON stream into StreamChunks.
// Every send selects on ctx.Done so an abandoned consumer cannot leak the
// reader goroutine or the response body.
func streamNDJSON(ctx context.Context, body io.ReadCloser, providerName string) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)

		var boundary runeBoundaryBuffer
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					select {
					case <-ctx.Done():
					case ch <- llm.StreamChunk{Err: &llm.Error{
						Code: llm.ErrUpstreamError, Message: err.Error(),
						HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: providerName,
					}}:
					}
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			var msg chatResponse
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				continue // tolerate partial lines from proxies
			}
			if msg.Error != "" {
				select {
				case <-ctx.Done():
				case ch <- llm.StreamChunk{Err: &llm.Error{
					Code: llm.ErrUpstreamError, Message: msg.Error,
					HTTPStatus: http.StatusBadGateway, Provider: providerName,
				}}:
				}
				return
			}

			if content := boundary.Write(msg.Message.Content); content != "" {
				select {
				case <-ctx.Done():
					return
				case ch <- llm.StreamChunk{
					Provider: providerName,
					Model:    msg.Model,
					Delta:    llm.Message{Role: llm.RoleAssistant, Content: content},
				}:
				}
			}

			if msg.Done {
				final := llm.StreamChunk{
					Provider:     providerName,
					Model:        msg.Model,
					FinishReason: msg.DoneRsn,
				}
				if final.FinishReason == "" {
					final.FinishReason = "stop"
				}
				if rest := boundary.Flush(); rest != "" {
					final.Delta = llm.Message{Role: llm.RoleAssistant, Content: rest}
				}
				if msg.EvalCount > 0 || msg.PromptEC > 0 {
					final.Usage = &llm.ChatUsage{
						PromptTokens:     msg.PromptEC,
						CompletionTokens: msg.EvalCount,
						TotalTokens:      msg.PromptEC + msg.EvalCount,
					}
				}
				select {
				case <-ctx.Done():
				case ch <- final:
				}
				return
			}
		}
	}()
	return ch
}

// HealthCheck probes the server's tag listing endpoint.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: time.Since(start)}, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return &llm.HealthStatus{
		Healthy: resp.StatusCode < 400,
		Latency: time.Since(start),
	}, nil
}

func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func mapHTTPError(status int, msg, provider string) *llm.Error {
	code := llm.ErrUpstreamError
	retryable := status >= 500
	switch {
	case status == http.StatusNotFound:
		code = llm.ErrModelNotFound
	case status == http.StatusTooManyRequests:
		code = llm.ErrRateLimited
		retryable = true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = llm.ErrUnauthorized
	case status >= 400 && status < 500:
		code = llm.ErrInvalidRequest
	}
	return &llm.Error{
		Code: code, Message: msg, HTTPStatus: status,
		Retryable: retryable, Provider: provider,
	}
}
