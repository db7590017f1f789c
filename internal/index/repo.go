package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/shelf/internal/fold"
)

// NodeRow represents a row in the nodes table.
type NodeRow struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ParentID  string    `json:"parentID,omitempty"`
	Title     string    `json:"title"`
	Checksum  string    `json:"-"`
	Tags      []string  `json:"tags"`
	Body      string    `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertNode inserts or replaces a node row and its FTS entry within a transaction.
func (db *DB) UpsertNode(n NodeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.Tags == nil {
		n.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(n.Tags)
	folded := fold.Key(strings.Join([]string{n.Title, n.Body, strings.Join(n.Tags, " ")}, "\n"))

	_, err = tx.Exec(`
		INSERT INTO nodes (id, type, parent_id, title, checksum, tags, body, folded, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type       = excluded.type,
			parent_id  = excluded.parent_id,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			folded     = excluded.folded,
			updated_at = excluded.updated_at
	`, n.ID, n.Type, n.ParentID, n.Title, n.Checksum, string(tagsJSON), n.Body, folded, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert node: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.ID, n.Title, n.Body, n.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNode removes a node row and its FTS entry.
func (db *DB) DeleteNode(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete node: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a node, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM nodes WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed node keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// GetNode returns the indexed row for id, or nil when it is not indexed.
func (db *DB) GetNode(id string) (*NodeRow, error) {
	var (
		r    NodeRow
		tags string
	)
	err := db.conn.QueryRow(`
		SELECT id, type, parent_id, title, checksum, tags, body, updated_at
		FROM nodes WHERE id = ?
	`, id).Scan(&r.ID, &r.Type, &r.ParentID, &r.Title, &r.Checksum, &tags, &r.Body, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get node: %w", err)
	}
	_ = json.Unmarshal([]byte(tags), &r.Tags)
	return &r, nil
}

// ListTagged returns the rows carrying tag, matched ignoring accents and
// case, most recently updated first.
func (db *DB) ListTagged(tag string, limit int) ([]NodeRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, type, parent_id, title, tags, updated_at
		FROM nodes
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list tagged: %w", err)
	}
	defer rows.Close()

	var out []NodeRow
	for rows.Next() && len(out) < limit {
		var (
			r    NodeRow
			tags string
		)
		if err := rows.Scan(&r.ID, &r.Type, &r.ParentID, &r.Title, &tags, &r.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tags), &r.Tags)
		for _, t := range r.Tags {
			if fold.Equal(t, tag) {
				out = append(out, r)
				break
			}
		}
	}
	return out, rows.Err()
}

// Count returns the number of indexed nodes.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
