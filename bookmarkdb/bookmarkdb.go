// Package bookmarkdb persists the bookmark list in SQLite. The whole list is
// one JSON array stored under a single key, read once at startup and
// overwritten after every change.
package bookmarkdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/forkify/dbopen"
	"github.com/hazyhaar/forkify/state"
)

// Store implements state.BookmarkStore.
type Store struct {
	DB  *sql.DB
	key string
	now func() time.Time
}

var _ state.BookmarkStore = (*Store)(nil)

// Open opens (or creates) the bookmark database at path.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("bookmarkdb: %w", err)
	}
	return New(db), nil
}

// New wraps an already opened database. The schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{DB: db, key: BookmarksKey, now: time.Now}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Load returns the persisted bookmarks, or nil when none were ever saved.
func (s *Store) Load(ctx context.Context) ([]state.Recipe, error) {
	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookmarkdb: load: %w", err)
	}

	var out []state.Recipe
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("bookmarkdb: decode: %w", err)
	}
	return out, nil
}

// Save overwrites the bookmark row with bookmarks.
func (s *Store) Save(ctx context.Context, bookmarks []state.Recipe) error {
	if bookmarks == nil {
		bookmarks = []state.Recipe{}
	}
	raw, err := json.Marshal(bookmarks)
	if err != nil {
		return fmt.Errorf("bookmarkdb: encode: %w", err)
	}

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value,
				updated_at = MAX(excluded.updated_at, kv.updated_at + 1)`,
			s.key, string(raw), s.now().UnixMilli())
		if err != nil {
			return fmt.Errorf("bookmarkdb: save: %w", err)
		}
		return nil
	})
}

// UpdatedAt returns when the bookmarks were last saved, zero if never.
// Saves closer than a millisecond apart each advance it by one, so it can
// run slightly ahead of the wall clock.
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	var ms int64
	err := s.DB.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, s.key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("bookmarkdb: updated_at: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// Version returns a token that changes on every Save, from any process
// using the same file: updated_at in milliseconds, bumped by one when two
// saves land in the same millisecond. Zero if never saved.
func (s *Store) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.DB.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, s.key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("bookmarkdb: version: %w", err)
	}
	return v, nil
}
