package journal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/nbsave/internal/models"
)

// Record stores a revision and moves the notebook row to its latest state.
// Recording the same commit for the same path twice is a no-op for the
// revisions table.
func (db *DB) Record(rev models.Revision) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	created := rev.CreatedAt.UTC()
	_, err = tx.Exec(`
		INSERT OR IGNORE INTO revisions (path, kind, old_path, commit_hash, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rev.Path, rev.Kind, rev.OldPath, rev.Commit, rev.Checksum, created)
	if err != nil {
		return fmt.Errorf("journal: insert revision: %w", err)
	}

	checksum := rev.Checksum
	if rev.Kind == models.RevisionRename && rev.OldPath != "" {
		// A rename carries the content checksum over from the old row.
		var prev string
		err := tx.QueryRow(`SELECT checksum FROM notebooks WHERE path = ?`, rev.OldPath).Scan(&prev)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("journal: read old notebook: %w", err)
		}
		checksum = prev
		if _, err := tx.Exec(`DELETE FROM notebooks WHERE path = ?`, rev.OldPath); err != nil {
			return fmt.Errorf("journal: delete old notebook: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO notebooks (path, last_commit, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			last_commit = excluded.last_commit,
			checksum    = CASE WHEN excluded.checksum = '' THEN notebooks.checksum ELSE excluded.checksum END,
			updated_at  = excluded.updated_at
	`, rev.Path, rev.Commit, checksum, created)
	if err != nil {
		return fmt.Errorf("journal: upsert notebook: %w", err)
	}

	return tx.Commit()
}

// History returns revisions for path, including the rename that produced
// it, newest first. A limit of zero or less returns all of them.
func (db *DB) History(path string, limit int) ([]models.Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT path, kind, old_path, commit_hash, checksum, created_at
		FROM revisions
		WHERE path = ? OR old_path = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, path, path, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: history: %w", err)
	}
	defer rows.Close()

	out := []models.Revision{}
	for rows.Next() {
		var r models.Revision
		if err := rows.Scan(&r.Path, &r.Kind, &r.OldPath, &r.Commit, &r.Checksum, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan revision: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Notebooks lists journaled notebooks ordered by path.
func (db *DB) Notebooks() ([]models.NotebookMetadata, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, last_commit, updated_at FROM notebooks ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("journal: list notebooks: %w", err)
	}
	defer rows.Close()

	out := []models.NotebookMetadata{}
	for rows.Next() {
		var m models.NotebookMetadata
		if err := rows.Scan(&m.Path, &m.Checksum, &m.Commit, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan notebook: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LastCommit returns the newest commit recorded for path, or "" if none.
func (db *DB) LastCommit(path string) (string, error) {
	var hash string
	err := db.conn.QueryRow(`SELECT last_commit FROM notebooks WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("journal: last commit: %w", err)
	}
	return hash, nil
}

// DeleteNotebook drops the notebook row. Its revisions are kept.
func (db *DB) DeleteNotebook(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notebooks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal: delete notebook: %w", err)
	}
	return nil
}
