// Package store persists the subscriber list and per-interaction
// analytics events in a local sqlite database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Subscriber is one chat opted in to broadcast tips.
type Subscriber struct {
	ChatID    int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

// Interaction is one handled message, recorded for analytics.
type Interaction struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"index"`
	Kind      string
	Rule      string
	Chars     int
	Truncated bool
	Duration  time.Duration
	CreatedAt time.Time `gorm:"index"`
}

// Interaction kinds.
const (
	KindReply    = "reply"
	KindNudge    = "nudge"
	KindRedirect = "redirect"
	KindError    = "error"
	KindCommand  = "command"
)

// Store wraps the gorm handle.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the sqlite database and migrates the
// schema.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Subscriber{}, &Interaction{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	logger.Info("store opened", zap.String("dsn", dsn))
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Subscribe adds a chat to the subscriber list; re-subscribing is a
// no-op and returns false.
func (s *Store) Subscribe(ctx context.Context, chatID int64) (added bool, err error) {
	res := s.db.WithContext(ctx).
		Where(Subscriber{ChatID: chatID}).
		FirstOrCreate(&Subscriber{ChatID: chatID, CreatedAt: time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("subscribe %d: %w", chatID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unsubscribe removes a chat; unsubscribing an unknown chat returns false.
func (s *Store) Unsubscribe(ctx context.Context, chatID int64) (removed bool, err error) {
	res := s.db.WithContext(ctx).Delete(&Subscriber{}, "chat_id = ?", chatID)
	if res.Error != nil {
		return false, fmt.Errorf("unsubscribe %d: %w", chatID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IsSubscribed reports membership.
func (s *Store) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	var sub Subscriber
	err := s.db.WithContext(ctx).First(&sub, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Subscribers returns all subscribed chat IDs.
func (s *Store) Subscribers(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&Subscriber{}).Order("chat_id").Pluck("chat_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return ids, nil
}

// RecordInteraction appends one analytics event. Failures are logged,
// not propagated: analytics never break a reply.
func (s *Store) RecordInteraction(ctx context.Context, in Interaction) {
	in.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&in).Error; err != nil {
		s.logger.Warn("record interaction failed", zap.Error(err))
	}
}

// InteractionCounts returns event totals per kind since the given time.
func (s *Store) InteractionCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	type row struct {
		Kind  string
		Total int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&Interaction{}).
		Select("kind, count(*) as total").
		Where("created_at >= ?", since).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("interaction counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Kind] = r.Total
	}
	return out, nil
}
