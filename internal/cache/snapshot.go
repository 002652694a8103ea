// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// snapshotRow is one entry captured for persistence.
type snapshotRow struct {
	category  string
	key       string
	expiresAt time.Time
}

// Snapshot is a best-effort, non-authoritative warm-start store for a
// Cache, grounded on the schema-migration idiom of a SQLite-backed store
// elsewhere in this codebase's lineage. A cache miss never waits on it:
// nothing on the request path calls Load or Save. cmd/paper-mcp opens the
// snapshot when a path is configured but does not call Load or Save.
type Snapshot struct {
	db *sql.DB
}

// OpenSnapshot opens (creating if absent) the SQLite database at path and
// ensures its schema exists.
func OpenSnapshot(path string) (*Snapshot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache snapshot: creating directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("cache snapshot: opening database: %w", err)
	}
	s := &Snapshot{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		category TEXT NOT NULL,
		key TEXT NOT NULL,
		value_json TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (category, key)
	)`)
	if err != nil {
		return fmt.Errorf("cache snapshot: creating schema: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// Save persists every live entry in c. It is best-effort: a write failure
// is returned but never propagated as a cache-operation failure by the
// caller, since the snapshot is purely an acceleration structure.
func (s *Snapshot) Save(c *Cache, values map[string]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache snapshot: begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM cache_entries`); err != nil {
		tx.Rollback()
		return fmt.Errorf("cache snapshot: clearing table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO cache_entries(category, key, value_json, expires_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("cache snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range c.snapshotEntries() {
		v, ok := values[row.category+"\x00"+row.key]
		if !ok {
			continue
		}
		blob, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(row.category, row.key, string(blob), row.expiresAt.Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("cache snapshot: insert: %w", err)
		}
	}
	return tx.Commit()
}

// Load reads every non-expired row into c. decode maps a category's
// JSON-encoded blob back to the concrete value type the cache should
// hand back on a subsequent Get; categories with no decoder are skipped.
func (s *Snapshot) Load(c *Cache, decode func(category, rawJSON string) (any, error)) error {
	rows, err := s.db.Query(`SELECT category, key, value_json, expires_at FROM cache_entries`)
	if err != nil {
		return fmt.Errorf("cache snapshot: query: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var category, key, valueJSON string
		var expiresUnix int64
		if err := rows.Scan(&category, &key, &valueJSON, &expiresUnix); err != nil {
			return fmt.Errorf("cache snapshot: scan: %w", err)
		}
		expiresAt := time.Unix(expiresUnix, 0)
		if now.After(expiresAt) {
			continue
		}
		value, err := decode(category, valueJSON)
		if err != nil {
			continue
		}
		c.restoreEntry(category, key, expiresAt, value)
	}
	return rows.Err()
}
