// Package journal provides a SQLite-backed record of notebook saves and
// renames received by the persistence receiver.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	path        TEXT PRIMARY KEY,
	last_commit TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS revisions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	old_path    TEXT NOT NULL DEFAULT '',
	commit_hash TEXT NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	UNIQUE(commit_hash, path)
);

CREATE INDEX IF NOT EXISTS idx_revisions_path ON revisions(path);
CREATE INDEX IF NOT EXISTS idx_revisions_old_path ON revisions(old_path);
`

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
