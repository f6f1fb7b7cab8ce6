// Package agents persists and queries the indexed agent records in SQLite.
// Full-text relevance comes from an FTS5 shadow table kept in sync on every
// write; ranking reads consult it for relevance and paginate by keyset.
package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite handle for the agent index.
type Store struct {
	db *sql.DB

	// homepageColumn caches the schema probe: 0 unknown, 1 present, 2 absent.
	// Older index files predate the homepage_url column and must keep
	// serving with homepage priority pinned to zero.
	homepageColumn atomic.Int32
}

// Open opens (or creates) the index at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			homepage_url TEXT NOT NULL DEFAULT '',
			protocols TEXT NOT NULL DEFAULT '[]',
			capabilities TEXT NOT NULL DEFAULT '[]',
			languages TEXT NOT NULL DEFAULT '[]',
			source TEXT NOT NULL DEFAULT '',
			safety_score INTEGER NOT NULL DEFAULT 0,
			popularity_score INTEGER NOT NULL DEFAULT 0,
			freshness_score INTEGER NOT NULL DEFAULT 0,
			overall_rank REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agents_status_rank
			ON agents(status, overall_rank DESC, created_at DESC)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS agents_fts
			USING fts5(name, description, capabilities)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// hasHomepageColumn probes once whether the agents table carries the
// homepage_url column, then serves the cached answer.
func (s *Store) hasHomepageColumn(ctx context.Context) bool {
	switch s.homepageColumn.Load() {
	case 1:
		return true
	case 2:
		return false
	}

	var v string
	err := s.db.QueryRowContext(ctx, "SELECT homepage_url FROM agents LIMIT 1").Scan(&v)
	switch {
	case err == nil, errors.Is(err, sql.ErrNoRows):
		// sql.ErrNoRows means the column exists on an empty table.
		s.homepageColumn.Store(1)
		return true
	case strings.Contains(err.Error(), "no such column"):
		s.homepageColumn.Store(2)
		return false
	default:
		// Transient failure (canceled context, busy handle): stay undecided
		// so the next request re-probes, and assume the modern schema for
		// this one only.
		return true
	}
}
