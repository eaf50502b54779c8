package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeoutMs = 5000

// sqliteStore is the Store implementation backed by a local SQLite file.
type sqliteStore struct {
	db     *sql.DB
	closed bool
}

// Open opens (creating if necessary) a SQLite database at path and returns
// a Store backed by it. The database is created with WAL mode, a 5s busy
// timeout, and a single connection — SQLite serializes writes, and the
// Store's contract only requires serialized access by a single caller.
// The schema is migrated automatically.
func Open(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeoutMs)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close implements Store. It is idempotent — closing twice is a no-op —
// but every other Store operation fails loudly once closed.
func (s *sqliteStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// errClosed is returned by any Store operation invoked after Close.
var errClosed = errors.New("store: closed")
