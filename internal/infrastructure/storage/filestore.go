package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"careguard/pkg/logger"
)

// FileStore persists each day partition as one JSON array file named
// {date}_{category}_log.json under a per-category subdirectory. This is
// the default backend.
type FileStore struct {
	dir    string
	logger *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewFileStore creates a file-backed log store rooted at dir.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: log.WithComponent("filestore"),
		locks:  make(map[string]*sync.RWMutex),
	}, nil
}

func (s *FileStore) path(category Category, day time.Time) string {
	name := fmt.Sprintf("%s_%s_log.json", DayKey(day), category)
	return filepath.Join(s.dir, string(category), name)
}

// fileLock returns the lock serializing access to one partition file.
func (s *FileStore) fileLock(path string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[path] = l
	}
	return l
}

// Append adds one record to the day's partition file, rewriting the whole
// JSON array. Writers to the same partition are serialized.
func (s *FileStore) Append(ctx context.Context, category Category, day time.Time, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	path := s.path(category, day)
	l := s.fileLock(path)
	l.Lock()
	defer l.Unlock()

	records := s.loadFile(path)
	records = append(records, json.RawMessage(data))

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal day log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create category directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write day log %s: %w", path, err)
	}
	return nil
}

// ReadDay returns all records of one day's partition file.
func (s *FileStore) ReadDay(ctx context.Context, category Category, day time.Time) ([]json.RawMessage, error) {
	path := s.path(category, day)
	l := s.fileLock(path)
	l.RLock()
	defer l.RUnlock()
	return s.loadFile(path), nil
}

// ReadRange returns the records of every day partition in [from, to].
func (s *FileStore) ReadRange(ctx context.Context, category Category, from, to time.Time) ([]json.RawMessage, error) {
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

func (s *FileStore) Close() error {
	return nil
}

// loadFile reads one partition file. The caller must hold the file's lock.
// A missing, empty or corrupted file reads as empty; a file holding a
// single JSON document instead of an array is treated as one record.
func (s *FileStore) loadFile(path string) []json.RawMessage {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to read day log, treating as empty")
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err == nil {
		return records
	}
	if json.Valid(data) {
		return []json.RawMessage{json.RawMessage(data)}
	}

	s.logger.Warn().Str("path", path).Msg("corrupted day log, treating as empty")
	return nil
}
