package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/furyload/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path     string
	Title    string
	Category string
	Group    string
	Checksum string
	// UpdatedAt is zero when the modification time is unknown.
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Snippet  string `json:"snippet"`
}

// UpsertDocument inserts or replaces a document and its FTS entry within a
// transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var updated any
	if !d.UpdatedAt.IsZero() {
		updated = d.UpdatedAt.UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, category, group_key, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			category   = excluded.category,
			group_key  = excluded.group_key,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Category, d.Group, d.Checksum, body, updated)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, d.Path, d.Title, d.Category, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its FTS entry.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if
// not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns the stored metadata of one document.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var (
		d       DocumentRow
		updated sql.NullTime
	)
	err := db.conn.QueryRow(`
		SELECT path, title, category, group_key, checksum, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.Path, &d.Title, &d.Category, &d.Group, &d.Checksum, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	if updated.Valid {
		d.UpdatedAt = updated.Time
	}
	return &d, nil
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed documents.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
