// Package cache provides Redis-backed webhook update deduplication.
// Telegram redelivers an update when the webhook answers slowly; marking
// update IDs with a short TTL keeps redeliveries from double-answering.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config configures the dedup cache.
type Config struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"-"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// Dedup marks seen webhook update IDs.
type Dedup struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Dedup, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return &Dedup{
		rdb:    rdb,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "dedup")),
	}, nil
}

// Seen atomically marks the update ID and reports whether it was already
// marked. Redis failures degrade to "not seen": processing twice beats
// dropping an update when the cache is down.
func (d *Dedup) Seen(ctx context.Context, updateID int64) bool {
	key := fmt.Sprintf("prepbot:update:%d", updateID)
	fresh, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("dedup check failed, processing anyway",
			zap.Int64("update_id", updateID), zap.Error(err))
		return false
	}
	return !fresh
}

// Close releases the Redis connection.
func (d *Dedup) Close() error { return d.rdb.Close() }
