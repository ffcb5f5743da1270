// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// lostfound message store.
//
// It wraps zombiezen.com/go/sqlite with fixed pragmas: WAL journaling
// so pollers read while a sender writes, synchronous=NORMAL, a 5 second
// busy timeout, and an in-memory temp store. Connections are not safe
// for concurrent use; each goroutine takes its own with [Pool.Take] or
// runs a function under one with [Pool.WithConn].
//
// # Transient failures
//
// [Pool.WithConn] retries its function exactly once when the first
// attempt fails with a transient SQLite result code (BUSY, LOCKED, or
// IOERR, see [IsTransient]). A second transient failure is returned to
// the caller, which reports it as unavailable instead of retrying
// further; clients try again on their next poll tick. Functions passed
// to WithConn must therefore be safe to re-run, which holds for a
// single transaction that either committed nothing or rolled back.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   filepath.Join(stateDir, "lostfound.db"),
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.WithConn(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "SELECT 1", nil)
//	})
package sqlitepool
