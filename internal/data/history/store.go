// Package history persists runtime snapshots and evaluates them against
// diagnostic thresholds.
package history

import (
	"context"
	"database/sql"
	"easierless/internal/core/ports"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName     = "sqlite"
	maxAttempts    = 5
	defaultSession = "default"
)

// Store keeps runtime snapshots in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

var _ ports.SnapshotStore = (*Store)(nil)

// Open creates or opens the database at path and migrates it.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while reloads keep writing.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeSession(session string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return defaultSession
	}
	return session
}

func (s *Store) SaveSnapshot(ctx context.Context, session string, snapshot ports.RuntimeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now().UTC()
	}

	query := `
INSERT INTO runtime_snapshots (
  id, session, label, ts_utc, heap_used_bytes, reload_duration_ms, watcher_count,
  registration_count, loaded_files, completion_symbols, generation_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	return s.withRetry("save snapshot", func() error {
		_, err := s.db.ExecContext(ctx, query,
			uuid.NewString(),
			normalizeSession(session),
			snapshot.Label,
			snapshot.TakenAt.UTC().Format(time.RFC3339Nano),
			int64(snapshot.HeapUsedBytes),
			snapshot.ReloadDuration.Milliseconds(),
			snapshot.WatcherCount,
			snapshot.RegistrationCount,
			snapshot.LoadedFiles,
			snapshot.CompletionSymbols,
			snapshot.ReloadGenerationID,
		)
		return err
	})
}

func (s *Store) LoadSnapshots(ctx context.Context, session string) ([]ports.RuntimeSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT label, ts_utc, heap_used_bytes, reload_duration_ms, watcher_count,
  registration_count, loaded_files, completion_symbols, generation_id
FROM runtime_snapshots
WHERE session = ?
ORDER BY ts_utc ASC, rowid ASC
`
	var rows *sql.Rows
	err := s.withRetry("load snapshots", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, normalizeSession(session))
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]ports.RuntimeSnapshot, 0)
	for rows.Next() {
		var (
			tsRaw      string
			heap       int64
			durationMS int64
			snapshot   ports.RuntimeSnapshot
		)
		if err := rows.Scan(
			&snapshot.Label,
			&tsRaw,
			&heap,
			&durationMS,
			&snapshot.WatcherCount,
			&snapshot.RegistrationCount,
			&snapshot.LoadedFiles,
			&snapshot.CompletionSymbols,
			&snapshot.ReloadGenerationID,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
		}
		snapshot.TakenAt = ts.UTC()
		snapshot.HeapUsedBytes = uint64(heap)
		snapshot.ReloadDuration = time.Duration(durationMS) * time.Millisecond
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

// Clear removes every snapshot of session.
func (s *Store) Clear(ctx context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("clear snapshots", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM runtime_snapshots WHERE session = ?`, normalizeSession(session))
		return err
	})
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// IsCorruptError reports whether err indicates an unusable database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
