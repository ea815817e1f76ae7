// Package tokenizer estimates prompt token counts for request budgeting.
// Counts are estimates: the bot talks to arbitrary Ollama models, so a
// cl100k_base count is used as a uniform, slightly conservative proxy.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/prepline/prepbot/llm"
)

// Estimator counts tokens in text. Implementations are safe for
// concurrent use.
type Estimator interface {
	CountTokens(text string) int
}

// Tiktoken estimates with a tiktoken encoding (default cl100k_base).
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding; empty selects cl100k_base.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic is a dependency-free fallback: roughly 4 characters per token.
type Heuristic struct{}

func (Heuristic) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// perMessageOverhead covers role markers and separators the chat template
// adds around each message.
const perMessageOverhead = 4

// CountRequest estimates the prompt token total for a chat request.
func CountRequest(e Estimator, req *llm.ChatRequest) int {
	total := 0
	for _, m := range req.Messages {
		total += e.CountTokens(m.Content) + perMessageOverhead
	}
	return total
}

// ClampMaxTokens lowers req.MaxTokens so prompt plus completion fits the
// context window, leaving the request untouched when it already fits.
// It returns the estimated prompt size.
func ClampMaxTokens(e Estimator, req *llm.ChatRequest) int {
	prompt := CountRequest(e, req)
	if req.ContextWindow <= 0 || req.MaxTokens <= 0 {
		return prompt
	}
	if room := req.ContextWindow - prompt; room > 0 && req.MaxTokens > room {
		req.MaxTokens = room
	}
	return prompt
}
