package history

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this build understands.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS runtime_snapshots (
  id TEXT PRIMARY KEY,
  session TEXT NOT NULL DEFAULT 'default',
  label TEXT NOT NULL DEFAULT '',
  ts_utc TEXT NOT NULL,
  heap_used_bytes INTEGER NOT NULL,
  reload_duration_ms INTEGER NOT NULL,
  watcher_count INTEGER NOT NULL,
  registration_count INTEGER NOT NULL,
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
CREATE INDEX IF NOT EXISTS idx_runtime_snapshots_session ON runtime_snapshots(session, ts_utc);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE runtime_snapshots ADD COLUMN loaded_files INTEGER NOT NULL DEFAULT 0;
ALTER TABLE runtime_snapshots ADD COLUMN completion_symbols INTEGER NOT NULL DEFAULT 0;
ALTER TABLE runtime_snapshots ADD COLUMN generation_id TEXT NOT NULL DEFAULT '';
`,
	},
}

// EnsureSchema applies pending migrations in order, one transaction each.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
