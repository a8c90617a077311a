package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"careguard/internal/config"
	"careguard/internal/infrastructure/cache"
	"careguard/internal/infrastructure/database"
	"careguard/pkg/logger"
)

// Category names one day-partitioned record log.
type Category string

const (
	CategoryEmotions      Category = "emotions"
	CategoryPhishing      Category = "phishing"
	CategoryAlerts        Category = "alerts"
	CategoryReports       Category = "reports"
	CategoryConversations Category = "conversations"
)

// DayFormat is the partition key layout for one calendar date.
const DayFormat = "2006-01-02"

// DayKey returns the day-partition key for a timestamp.
func DayKey(t time.Time) string {
	return t.Format(DayFormat)
}

// LogStore is the append-only, day-partitioned record store shared by the
// scorers, the trend aggregator and the alert engine. Records are opaque
// JSON documents; one partition holds the records of one calendar date.
//
// Implementations must provide read-your-own-writes within a process and
// serialize writers per partition. A corrupted partition reads as empty.
type LogStore interface {
	// Append adds one record to the partition of the given day.
	Append(ctx context.Context, category Category, day time.Time, record any) error

	// ReadDay returns all records of one day partition, oldest first.
	// A missing partition yields an empty slice, not an error.
	ReadDay(ctx context.Context, category Category, day time.Time) ([]json.RawMessage, error)

	// ReadRange returns the records of every partition between from and to
	// inclusive, in day order.
	ReadRange(ctx context.Context, category Category, from, to time.Time) ([]json.RawMessage, error)

	Close() error
}

// New builds the LogStore selected by cfg.Storage.Backend. The redis and
// postgres backends require their respective handles to be connected.
func New(ctx context.Context, cfg *config.Config, redisCache *cache.RedisCache, pg *database.PostgresDB, log *logger.Logger) (LogStore, error) {
	switch cfg.Storage.Backend {
	case "file":
		return NewFileStore(cfg.Storage.Dir, log)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLite.Path, log)
	case "redis":
		if redisCache == nil {
			return nil, fmt.Errorf("redis storage backend selected but redis is not connected")
		}
		return NewRedisStore(redisCache, log), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("postgres storage backend selected but postgres is not connected")
		}
		return NewPostgresStore(ctx, pg, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// dayOf truncates a timestamp to its calendar date.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// eachDay calls fn for every calendar date between from and to inclusive.
func eachDay(from, to time.Time, fn func(day time.Time) error) error {
	for d := dayOf(from); !d.After(dayOf(to)); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}
