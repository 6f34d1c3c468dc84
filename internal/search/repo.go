package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PostRow represents a row in the posts table.
type PostRow struct {
	Key       string
	Title     string
	Checksum  string
	Tags      []string
	Short     string
	Draft     bool
	Date      time.Time
	UpdatedAt time.Time
}

// Result represents one search hit.
type Result struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertPost inserts or replaces a post, its FTS entry, and links within a transaction.
func (db *DB) UpsertPost(r PostRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO posts (key, title, checksum, tags, short, body, draft, date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			short      = excluded.short,
			body       = excluded.body,
			draft      = excluded.draft,
			date       = excluded.date,
			updated_at = excluded.updated_at
	`, r.Key, r.Title, r.Checksum, string(tagsJSON), r.Short, body, r.Draft, r.Date, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("search: upsert post: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Key, r.Title, body, tags); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, r.Key)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("search: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(r.Key, target); err != nil {
				return fmt.Errorf("search: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePost removes a post, its FTS entry, and outgoing links.
func (db *DB) DeletePost(key string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, key)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, key)
	_, _ = tx.Exec(`DELETE FROM posts WHERE key = ?`, key)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(key string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE key = ?`, key).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the checksum of every mirrored post keyed by post key.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("search: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, cs string
		if err := rows.Scan(&k, &cs); err != nil {
			return nil, err
		}
		out[k] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the keys of all posts linking to any of targets, sorted.
func (db *DB) Backlinks(targets ...string) ([]string, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	args := make([]any, len(targets))
	for i, t := range targets {
		args[i] = t
	}
	q := `SELECT DISTINCT source FROM links WHERE target IN (?` +
		strings.Repeat(", ?", len(targets)-1) + `) ORDER BY source`
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
