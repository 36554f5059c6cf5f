// Package index provides the SQLite-backed project list and the persisted
// asset trees that carry notes, with optional FTS5 search over note text.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	path          TEXT NOT NULL UNIQUE,
	last_accessed TEXT NOT NULL DEFAULT '',
	favorite      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS asset_trees (
	project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
	tree       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notes (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	note_id    TEXT NOT NULL,
	uri        TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	UNIQUE(project_id, note_id)
);

CREATE INDEX IF NOT EXISTS idx_notes_uri ON notes(project_id, uri);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
