package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	task_id         TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	last_updated_at TIMESTAMP NOT NULL,
	body            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_messages_task ON messages(task_id);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	body       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tools (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	symbol     TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	body       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_queue (
	task_id     TEXT PRIMARY KEY,
	enqueued_at TIMESTAMP NOT NULL,
	body        TEXT NOT NULL
);

-- Registration order is the implicit rowid insertion order.
CREATE TABLE IF NOT EXISTS specialists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	body       TEXT NOT NULL
);
`

// DB wraps a sqlite handle and manages schema setup.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}
