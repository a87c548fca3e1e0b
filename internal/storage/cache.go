// Package storage persists successful paper lookups in a SQLite database
// so repeated jobs do not re-spend the lookup service's rate budget on
// papers already resolved.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snooow1029/paper-master/internal/s2"
)

// Cache is a SQLite-backed map from lookup key to canonical paper
// record. It satisfies the resolution engine's cache interface: misses
// and storage errors both read as "not cached".
type Cache struct {
	db *sql.DB
}

// Open opens or creates the lookup cache at the given path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS lookups (
			key TEXT PRIMARY KEY,
			paper_json TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the cached paper for a lookup key, if any.
func (c *Cache) Get(key string) (*s2.Paper, bool) {
	var raw string
	err := c.db.QueryRow(
		"SELECT paper_json FROM lookups WHERE key = ?", key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("[storage] cache read failed for %q: %v", key, err)
		return nil, false
	}

	var paper s2.Paper
	if err := json.Unmarshal([]byte(raw), &paper); err != nil {
		log.Printf("[storage] cached record for %q is corrupt: %v", key, err)
		return nil, false
	}
	return &paper, true
}

// Put stores a paper under a lookup key, replacing any earlier record.
func (c *Cache) Put(key string, paper *s2.Paper) {
	raw, err := json.Marshal(paper)
	if err != nil {
		log.Printf("[storage] cache write failed for %q: %v", key, err)
		return
	}
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO lookups (key, paper_json, fetched_at) VALUES (?, ?, ?)",
		key, string(raw), time.Now().Unix(),
	)
	if err != nil {
		log.Printf("[storage] cache write failed for %q: %v", key, err)
	}
}

// Prune deletes records fetched before the cutoff and returns how many
// were removed.
func (c *Cache) Prune(cutoff time.Time) (int, error) {
	res, err := c.db.Exec("DELETE FROM lookups WHERE fetched_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return int(n), nil
}

// Len reports the number of cached records.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM lookups").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache records: %w", err)
	}
	return n, nil
}
