// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messagestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/sqlitepool"
)

// schema is applied on every new connection. Timestamps are Unix
// nanoseconds; booleans are 0/1 integers.
const schema = `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		is_claimed INTEGER NOT NULL DEFAULT 0,
		claimed_at INTEGER,
		claimed_by TEXT
	);

	CREATE TABLE IF NOT EXISTS messages (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id  INTEGER NOT NULL,
		sender   TEXT NOT NULL,
		receiver TEXT NOT NULL,
		content  TEXT NOT NULL,
		sent_at  INTEGER NOT NULL,
		is_read  INTEGER NOT NULL DEFAULT 0,
		read_at  INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_messages_item ON messages(item_id, sent_at, id);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender, sent_at, id);
	CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver, sent_at, id);
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver, is_read);
`

// Store is the SQLite-backed message store. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file. Its directory must exist.
	Path string

	// PoolSize is the number of connections. Defaults to 4.
	PoolSize int

	// Clock assigns SentAt, ReadAt, and ClaimedAt. Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Open opens (creating if necessary) the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("message store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("message store: Logger is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("message store: %w", err)
	}

	store := &Store{pool: pool, clock: cfg.Clock, logger: cfg.Logger}

	// Touch one connection so schema errors surface at startup rather
	// than on the first request.
	if err := pool.WithConn(context.Background(), func(*sqlite.Conn) error { return nil }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("message store: preparing schema: %w", err)
	}
	return store, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// classify converts a raw error from a store operation into the
// failure taxonomy. Already-classified failures and context errors pass
// through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *failure.Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if sqlitepool.IsTransient(err) {
		return failure.Unavailable(op, err)
	}
	return fmt.Errorf("message store: %s: %w", op, err)
}

// nanos converts t to the stored representation.
func nanos(t time.Time) int64 {
	return t.UnixNano()
}

// fromNanos converts a stored timestamp back to UTC time.
func fromNanos(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

// nullableTime reads an optional timestamp column.
func nullableTime(stmt *sqlite.Stmt, column int) *time.Time {
	if stmt.ColumnType(column) == sqlite.TypeNull {
		return nil
	}
	value := fromNanos(stmt.ColumnInt64(column))
	return &value
}
