// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists lookup responses in SQLite so that re-running a
// bibliography does not re-query the search service for titles it has
// already seen.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibrefine/pkg/types"
)

// Store is a SQLite-backed lookup cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens or creates the cache database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.CacheConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, ttl: cfg.TTL, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS lookups (
		query TEXT PRIMARY KEY,
		candidates TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the cached candidates for query. Entries older than the TTL
// are reported as misses.
func (s *Store) Get(ctx context.Context, query string) ([]types.Candidate, bool, error) {
	var raw, fetched string
	err := s.db.QueryRowContext(ctx,
		`SELECT candidates, fetched_at FROM lookups WHERE query = ?`, query,
	).Scan(&raw, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if s.ttl > 0 {
		at, err := time.Parse(time.RFC3339Nano, fetched)
		if err != nil || s.now().Sub(at) > s.ttl {
			return nil, false, nil
		}
	}

	var cands []types.Candidate
	if err := json.Unmarshal([]byte(raw), &cands); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return cands, true, nil
}

// Put stores candidates for query, replacing any earlier entry.
func (s *Store) Put(ctx context.Context, query string, candidates []types.Candidate) error {
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lookups (query, candidates, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET candidates = excluded.candidates, fetched_at = excluded.fetched_at`,
		query, string(data), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Len returns the number of cached queries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM lookups`).Scan(&n)
	return n, err
}
