package storage

import (
	"context"
	"encoding/json"
	"time"

	"careguard/internal/metrics"
)

// instrumentedStore wraps a LogStore and records operation latencies.
type instrumentedStore struct {
	inner LogStore
}

// WithMetrics decorates a store with Prometheus instrumentation.
func WithMetrics(inner LogStore) LogStore {
	return &instrumentedStore{inner: inner}
}

func (s *instrumentedStore) Append(ctx context.Context, category Category, day time.Time, record any) error {
	start := time.Now()
	err := s.inner.Append(ctx, category, day, record)
	metrics.StoreOpDuration.WithLabelValues("append", string(category), opStatus(err)).Observe(time.Since(start).Seconds())
	return err
}

func (s *instrumentedStore) ReadDay(ctx context.Context, category Category, day time.Time) ([]json.RawMessage, error) {
	start := time.Now()
	records, err := s.inner.ReadDay(ctx, category, day)
	metrics.StoreOpDuration.WithLabelValues("read_day", string(category), opStatus(err)).Observe(time.Since(start).Seconds())
	return records, err
}

func (s *instrumentedStore) ReadRange(ctx context.Context, category Category, from, to time.Time) ([]json.RawMessage, error) {
	start := time.Now()
	records, err := s.inner.ReadRange(ctx, category, from, to)
	metrics.StoreOpDuration.WithLabelValues("read_range", string(category), opStatus(err)).Observe(time.Since(start).Seconds())
	return records, err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}

func opStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
