// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messagestore

import (
	"context"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

const itemColumns = `id, title, created_by, is_claimed, claimed_at, claimed_by`

// RegisterUser adds username to the directory. Registering an existing
// user is a no-op.
func (s *Store) RegisterUser(ctx context.Context, username string) error {
	const op = "register_user"
	if err := message.ValidateUsername(username); err != nil {
		return failure.Validation(op, "%v", err)
	}
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT OR IGNORE INTO users (username) VALUES (?)`,
			&sqlitex.ExecOptions{Args: []any{username}})
	})
	return classify(op, err)
}

// UserExists reports whether username is registered.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		exists, err = userExists(conn, username)
		return err
	})
	if err != nil {
		return false, classify("user_exists", err)
	}
	return exists, nil
}

// RegisterItem creates an OPEN item owned by createdBy, who must be a
// registered user.
func (s *Store) RegisterItem(ctx context.Context, title, createdBy string) (message.Item, error) {
	const op = "register_item"
	title = strings.TrimSpace(title)

	var item message.Item
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		known, err := userExists(conn, createdBy)
		if err != nil {
			return err
		}
		if !known {
			return failure.Validation(op, "unknown user %q", createdBy)
		}
		err = sqlitex.Execute(conn, `INSERT INTO items (title, created_by) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{title, createdBy}})
		if err != nil {
			return err
		}
		item = message.Item{ID: conn.LastInsertRowID(), Title: title, CreatedBy: createdBy}
		return nil
	})
	if err != nil {
		return message.Item{}, classify(op, err)
	}
	s.logger.Info("item registered", "item_id", item.ID, "created_by", createdBy)
	return item, nil
}

// GetItem returns the item with the given ID. Fails with
// failure.KindNotFound if it does not exist.
func (s *Store) GetItem(ctx context.Context, itemID int64) (message.Item, error) {
	const op = "get_item"
	var item message.Item
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		found, ok, err := getItem(conn, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return failure.NotFound(op, "item %d not found", itemID)
		}
		item = found
		return nil
	})
	if err != nil {
		return message.Item{}, classify(op, err)
	}
	return item, nil
}

// UpdateItemClaim loads an item inside an IMMEDIATE transaction, passes
// it to fn, and writes the claim fields back if fn reports a change.
// Concurrent updates to the same item serialize. Errors returned by fn
// abort the transaction and are returned unchanged.
func (s *Store) UpdateItemClaim(ctx context.Context, itemID int64, fn func(item *message.Item) (changed bool, err error)) (message.Item, error) {
	const op = "update_item_claim"
	var result message.Item
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		item, ok, err := getItem(conn, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return failure.NotFound(op, "item %d not found", itemID)
		}
		changed, err := fn(&item)
		if err != nil {
			return err
		}
		if changed {
			var claimedAt, claimedBy any
			if item.ClaimedAt != nil {
				claimedAt = nanos(*item.ClaimedAt)
			}
			if item.ClaimedBy != "" {
				claimedBy = item.ClaimedBy
			}
			err = sqlitex.Execute(conn,
				`UPDATE items SET is_claimed = ?, claimed_at = ?, claimed_by = ? WHERE id = ?`,
				&sqlitex.ExecOptions{Args: []any{item.IsClaimed, claimedAt, claimedBy, itemID}})
			if err != nil {
				return err
			}
		}
		result = item
		return nil
	})
	if err != nil {
		return message.Item{}, classify(op, err)
	}
	return result, nil
}

// CountItems returns the number of registered items.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT COUNT(*) FROM items`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, classify("count_items", err)
	}
	return count, nil
}

func userExists(conn *sqlite.Conn, username string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn, `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`,
		&sqlitex.ExecOptions{
			Args: []any{username},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = stmt.ColumnInt(0) != 0
				return nil
			},
		})
	return exists, err
}

func itemExists(conn *sqlite.Conn, itemID int64) (bool, error) {
	_, ok, err := getItem(conn, itemID)
	return ok, err
}

func getItem(conn *sqlite.Conn, itemID int64) (message.Item, bool, error) {
	var item message.Item
	var ok bool
	err := sqlitex.Execute(conn, `SELECT `+itemColumns+` FROM items WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{itemID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			item = message.Item{
				ID:        stmt.ColumnInt64(0),
				Title:     stmt.ColumnText(1),
				CreatedBy: stmt.ColumnText(2),
				IsClaimed: stmt.ColumnInt(3) != 0,
				ClaimedAt: nullableTime(stmt, 4),
				ClaimedBy: stmt.ColumnText(5),
			}
			ok = true
			return nil
		},
	})
	return item, ok, err
}
