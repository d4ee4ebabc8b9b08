// Package userdb implements the persistent UserDB of spec §4.4: a
// (phrase, context1, context2)-keyed frequency store with recency and
// n-gram context scoring, serialized through a single writer.
package userdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/keyweave/inputcore/internal/logger"
)

var log = logger.New("userdb")

// migration mirrors the versioned up/down SQL pair pattern used for the
// event store's schema history, adapted to the phrase/context table.
type migration struct {
	version     int
	description string
	up          string
}

var migrations = []migration{
	{
		version:     1,
		description: "initial phrase/context frequency table",
		up: `
CREATE TABLE IF NOT EXISTS entries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    phrase      TEXT NOT NULL,
    context1    TEXT NOT NULL DEFAULT '',
    context2    TEXT NOT NULL DEFAULT '',
    frequency   REAL NOT NULL DEFAULT 0,
    last_used   INTEGER NOT NULL,
    UNIQUE(phrase, context1, context2)
);

CREATE INDEX IF NOT EXISTS idx_entries_phrase ON entries(phrase);
CREATE INDEX IF NOT EXISTS idx_entries_last_used ON entries(last_used);
`,
	},
}

// Open opens or creates the sqlite3-backed UserDB at path, applying any
// pending migrations. WAL mode matches the teacher's event-store
// pragma choice for a single-writer/many-reader workload.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("userdb: open %s: %w", path, err)
	}
	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("userdb: migrate: %w", err)
	}
	return &DB{sql: sqlDB, path: path}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    applied_at  INTEGER NOT NULL,
    description TEXT
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read current version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.version, time.Now().UnixNano(), m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		log.Infof("applied userdb migration %d: %s", m.version, m.description)
	}
	return nil
}
