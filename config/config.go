// Package config provides the layered configuration for prepbot:
// defaults, then a YAML file, then PREPBOT_* environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/prepline/prepbot/chat/telegram"
	"github.com/prepline/prepbot/internal/cache"
	"github.com/prepline/prepbot/llm/ollama"
	"github.com/prepline/prepbot/stream"
)

// Config is the complete application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram" env:"TELEGRAM"`
	Ollama    ollama.Config   `yaml:"ollama" env:"OLLAMA"`
	Stream    stream.Config   `yaml:"stream" env:"STREAM"`
	Bot       BotConfig       `yaml:"bot" env:"BOT"`
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Redis     RedisConfig     `yaml:"redis" env:"REDIS"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// TelegramConfig extends the transport client config with webhook settings.
type TelegramConfig struct {
	Token         string        `yaml:"token" env:"TOKEN"`
	WebhookSecret string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	WebhookPath   string        `yaml:"webhook_path" env:"WEBHOOK_PATH"`
	BaseURL       string        `yaml:"base_url" env:"BASE_URL"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RatePerSecond float64       `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
}

// ClientConfig converts to the transport client's own config type.
func (c TelegramConfig) ClientConfig() telegram.Config {
	return telegram.Config{
		Token:         c.Token,
		BaseURL:       c.BaseURL,
		Timeout:       c.Timeout,
		RatePerSecond: c.RatePerSecond,
	}
}

// BotConfig holds model-facing generation settings.
type BotConfig struct {
	Model         string  `yaml:"model" env:"MODEL"`
	SystemPrompt  string  `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	MaxTokens     int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	ContextWindow int     `yaml:"context_window" env:"CONTEXT_WINDOW"`
	Temperature   float32 `yaml:"temperature" env:"TEMPERATURE"`
	TopP          float32 `yaml:"top_p" env:"TOP_P"`
	RepeatPenalty float32 `yaml:"repeat_penalty" env:"REPEAT_PENALTY"`
	MaxSuggests   int     `yaml:"max_suggests" env:"MAX_SUGGESTS"`
}

// ServerConfig holds the HTTP listeners.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	MetricsAddr     string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StoreConfig holds subscriber/analytics persistence settings.
type StoreConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

// RedisConfig holds webhook dedup cache settings. An empty Addr disables
// dedup.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// CacheConfig converts to the dedup cache's own config type.
func (c RedisConfig) CacheConfig() cache.Config {
	return cache.Config{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		TTL:      c.TTL,
	}
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // json or console
}

// TelemetryConfig controls OTel tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Keeps answers inside the streaming cap most of the time.
const defaultSystemPrompt = "You are a helpful, concise assistant replying for a Telegram bot. " +
	"Keep answers under ~180 words (≈900 characters) unless the user asks for details. " +
	"Prefer short bullets for steps; avoid long stories."

// Default returns the baseline configuration before file and env layers.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			WebhookPath:   "/telegram/webhook",
			BaseURL:       "https://api.telegram.org",
			Timeout:       30 * time.Second,
			RatePerSecond: 30,
		},
		Ollama: ollama.DefaultConfig(),
		Stream: stream.DefaultConfig(),
		Bot: BotConfig{
			SystemPrompt:  defaultSystemPrompt,
			MaxTokens:     180,
			ContextWindow: 2048,
			Temperature:   0.3,
			TopP:          0.9,
			RepeatPenalty: 1.15,
			MaxSuggests:   2,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{DSN: "prepbot.db"},
		Redis: RedisConfig{TTL: 10 * time.Minute},
		Log:   LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			ServiceName: "prepbot",
			SampleRate:  1.0,
		},
	}
}

// Validate rejects configurations the bot cannot start with.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Stream.Cap <= 0 {
		return fmt.Errorf("stream.cap must be positive")
	}
	if c.Stream.MaxLen <= 0 {
		return fmt.Errorf("stream.max_len must be positive")
	}
	if c.Stream.MinInterval < 0 {
		return fmt.Errorf("stream.min_interval must not be negative")
	}
	return nil
}
