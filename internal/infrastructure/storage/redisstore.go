package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"careguard/internal/infrastructure/cache"
	"careguard/pkg/logger"
)

// RedisStore persists each day partition as a Redis list under
// log:{category}:{day} (namespaced by the cache key prefix).
type RedisStore struct {
	cache  *cache.RedisCache
	logger *logger.Logger
}

// NewRedisStore creates a Redis-backed log store on an existing connection.
// The connection stays owned by the caller.
func NewRedisStore(c *cache.RedisCache, log *logger.Logger) *RedisStore {
	return &RedisStore{
		cache:  c,
		logger: log.WithComponent("redisstore"),
	}
}

func (s *RedisStore) dayKey(category Category, day time.Time) string {
	return fmt.Sprintf("log:%s:%s", category, DayKey(day))
}

func (s *RedisStore) Append(ctx context.Context, category Category, day time.Time, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.cache.RPush(ctx, s.dayKey(category, day), string(data)); err != nil {
		return fmt.Errorf("failed to push record: %w", err)
	}
	return nil
}

func (s *RedisStore) ReadDay(ctx context.Context, category Category, day time.Time) ([]json.RawMessage, error) {
	items, err := s.cache.LRange(ctx, s.dayKey(category, day), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to read day partition: %w", err)
	}
	records := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		if !json.Valid([]byte(item)) {
			s.logger.Warn().Str("key", s.dayKey(category, day)).Msg("corrupted record payload, skipping")
			continue
		}
		records = append(records, json.RawMessage(item))
	}
	return records, nil
}

func (s *RedisStore) ReadRange(ctx context.Context, category Category, from, to time.Time) ([]json.RawMessage, error) {
	var records []json.RawMessage
	err := eachDay(from, to, func(day time.Time) error {
		dayRecords, err := s.ReadDay(ctx, category, day)
		if err != nil {
			return err
		}
		records = append(records, dayRecords...)
		return nil
	})
	return records, err
}

// Close is a no-op; the Redis connection is shared and closed by its owner.
func (s *RedisStore) Close() error {
	return nil
}
