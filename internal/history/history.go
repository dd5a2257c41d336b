// Package history keeps a SQLite-backed log of saved note versions so
// past content can be listed, inspected, and diffed against.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/funkpopo/notevault/internal/apperr"
)

// DefaultKeep is the per-path retention limit applied when none is
// configured.
const DefaultKeep = 100

const schemaSQL = `
CREATE TABLE IF NOT EXISTS versions (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	content     TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	size        INTEGER NOT NULL DEFAULT 0,
	writer_id   TEXT NOT NULL DEFAULT '',
	saved_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_versions_path ON versions(path);
`

// Version is one saved revision of a note. Content is only populated by
// Get; listings carry metadata alone.
type Version struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Content     string    `json:"content,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Size        int64     `json:"size"`
	WriterID    string    `json:"writer_id"`
	SavedAt     time.Time `json:"saved_at"`
}

// Log wraps a sql.DB with version log operations.
type Log struct {
	conn *sql.DB
	keep int
}

// Open opens (or creates) the SQLite database, applies the schema, and
// sets the per-path retention limit.
func Open(dsn string, keep int) (*Log, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Log{conn: conn, keep: keep}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}

// Append records a new version and prunes the oldest entries beyond the
// retention limit for that path.
func (l *Log) Append(path, content, fingerprint, writerID string) (Version, error) {
	v := Version{
		ID:          uuid.NewString(),
		Path:        path,
		Content:     content,
		Fingerprint: fingerprint,
		Size:        int64(len(content)),
		WriterID:    writerID,
		SavedAt:     time.Now().UTC(),
	}

	tx, err := l.conn.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO versions (id, path, content, fingerprint, size, writer_id, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.Path, v.Content, v.Fingerprint, v.Size, v.WriterID, v.SavedAt)
	if err != nil {
		return Version{}, fmt.Errorf("history: insert version: %w", err)
	}

	// Retention: keep the newest entries by insertion order.
	_, err = tx.Exec(`
		DELETE FROM versions WHERE path = ? AND id NOT IN (
			SELECT id FROM versions WHERE path = ? ORDER BY rowid DESC LIMIT ?
		)
	`, path, path, l.keep)
	if err != nil {
		return Version{}, fmt.Errorf("history: prune: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("history: commit: %w", err)
	}
	return v, nil
}

// ListByPath returns version metadata for a note, newest first. Content
// is omitted; fetch it with Get.
func (l *Log) ListByPath(path string, limit int) ([]Version, error) {
	if limit <= 0 || limit > l.keep {
		limit = l.keep
	}
	rows, err := l.conn.Query(`
		SELECT id, path, fingerprint, size, writer_id, saved_at
		FROM versions WHERE path = ? ORDER BY rowid DESC LIMIT ?
	`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list %s: %w", path, err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.Path, &v.Fingerprint, &v.Size, &v.WriterID, &v.SavedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get returns one version including its content.
func (l *Log) Get(id string) (Version, error) {
	var v Version
	err := l.conn.QueryRow(`
		SELECT id, path, content, fingerprint, size, writer_id, saved_at
		FROM versions WHERE id = ?
	`, id).Scan(&v.ID, &v.Path, &v.Content, &v.Fingerprint, &v.Size, &v.WriterID, &v.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("history: version %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Version{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	return v, nil
}

// RenamePath rewrites the version log when a note moves so its history
// stays attached to the new path.
func (l *Log) RenamePath(oldPath, newPath string) error {
	if _, err := l.conn.Exec(`UPDATE versions SET path = ? WHERE path = ?`, newPath, oldPath); err != nil {
		return fmt.Errorf("history: rename %s: %w", oldPath, err)
	}
	return nil
}

// RenamePrefix rewrites every path under oldPrefix to sit under newPrefix,
// so history follows a group move. Both prefixes must end with a slash.
func (l *Log) RenamePrefix(oldPrefix, newPrefix string) error {
	// SUBSTR comparison instead of LIKE: note paths may contain the LIKE
	// wildcards % and _.
	_, err := l.conn.Exec(`
		UPDATE versions
		SET path = ? || SUBSTR(path, LENGTH(?) + 1)
		WHERE SUBSTR(path, 1, LENGTH(?)) = ?
	`, newPrefix, oldPrefix, oldPrefix, oldPrefix)
	if err != nil {
		return fmt.Errorf("history: rename prefix %s: %w", oldPrefix, err)
	}
	return nil
}

// CountByPath returns the number of retained versions for a note.
func (l *Log) CountByPath(path string) (int, error) {
	var n int
	if err := l.conn.QueryRow(`SELECT COUNT(*) FROM versions WHERE path = ?`, path).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count %s: %w", path, err)
	}
	return n, nil
}
