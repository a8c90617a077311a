package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"careguard/internal/infrastructure/database"
	"careguard/pkg/logger"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS day_logs (
	seq      BIGSERIAL PRIMARY KEY,
	category TEXT NOT NULL,
	day      DATE NOT NULL,
	payload  JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_day_logs_category_day ON day_logs (category, day);
`

// PostgresStore persists day partitions as jsonb rows.
type PostgresStore struct {
	db     *database.PostgresDB
	logger *logger.Logger
}

// NewPostgresStore ensures the schema on an existing connection pool.
// The pool stays owned by the caller.
func NewPostgresStore(ctx context.Context, db *database.PostgresDB, log *logger.Logger) (*PostgresStore, error) {
	log = log.WithComponent("pgstore")
	if err := db.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("failed to create day_logs schema: %w", err)
	}
	log.Info().Msg("postgres store ready")
	return &PostgresStore{db: db, logger: log}, nil
}

func (s *PostgresStore) Append(ctx context.Context, category Category, day time.Time, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	err = s.db.Exec(ctx,
		"INSERT INTO day_logs (category, day, payload) VALUES ($1, $2, $3)",
		string(category), DayKey(day), data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReadDay(ctx context.Context, category Category, day time.Time) ([]json.RawMessage, error) {
	return s.query(ctx,
		"SELECT payload FROM day_logs WHERE category = $1 AND day = $2 ORDER BY seq",
		string(category), DayKey(day),
	)
}

func (s *PostgresStore) ReadRange(ctx context.Context, category Category, from, to time.Time) ([]json.RawMessage, error) {
	return s.query(ctx,
		"SELECT payload FROM day_logs WHERE category = $1 AND day BETWEEN $2 AND $3 ORDER BY day, seq",
		string(category), DayKey(from), DayKey(to),
	)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]json.RawMessage, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, json.RawMessage(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Close is a no-op; the connection pool is shared and closed by its owner.
func (s *PostgresStore) Close() error {
	return nil
}
