package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"careguard/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	day      TEXT NOT NULL,
	payload  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_category_day ON records (category, day);
`

// SQLiteStore persists day partitions as rows of an embedded database.
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) the database file and ensures the schema.
func NewSQLiteStore(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	log = log.WithComponent("sqlitestore")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	log.Info().Str("path", path).Msg("sqlite store ready")
	return &SQLiteStore{db: db, logger: log}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, category Category, day time.Time, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO records (category, day, payload) VALUES (?, ?, ?)",
		string(category), DayKey(day), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadDay(ctx context.Context, category Category, day time.Time) ([]json.RawMessage, error) {
	return s.query(ctx,
		"SELECT payload FROM records WHERE category = ? AND day = ? ORDER BY id",
		string(category), DayKey(day),
	)
}

func (s *SQLiteStore) ReadRange(ctx context.Context, category Category, from, to time.Time) ([]json.RawMessage, error) {
	return s.query(ctx,
		"SELECT payload FROM records WHERE category = ? AND day BETWEEN ? AND ? ORDER BY day, id",
		string(category), DayKey(from), DayKey(to),
	)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if !json.Valid([]byte(payload)) {
			s.logger.Warn().Msg("corrupted record payload, skipping")
			continue
		}
		records = append(records, json.RawMessage(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
