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

const messageColumns = `id, item_id, sender, receiver, content, sent_at, is_read, read_at`

// Send appends a message from sender to receiver about itemID and
// returns it with its assigned ID and SentAt. The message is visible to
// ListReceived(receiver) and ListSent(sender) as soon as Send returns.
//
// Fails with failure.KindValidation if content is blank, sender equals
// receiver, either user is unknown, or the item does not exist.
// Eligibility under the item's claim state is the claim gate's concern
// and is not checked here.
func (s *Store) Send(ctx context.Context, sender, receiver string, itemID int64, content string) (message.Message, error) {
	const op = "send"

	if strings.TrimSpace(content) == "" {
		return message.Message{}, failure.Validation(op, "message content is empty")
	}
	if err := message.ValidateUsername(sender); err != nil {
		return message.Message{}, failure.Validation(op, "sender: %v", err)
	}
	if err := message.ValidateUsername(receiver); err != nil {
		return message.Message{}, failure.Validation(op, "receiver: %v", err)
	}
	if sender == receiver {
		return message.Message{}, failure.Validation(op, "cannot send a message to yourself")
	}
	if itemID <= 0 {
		return message.Message{}, failure.Validation(op, "item id must be positive")
	}

	var sent message.Message
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		exists, err := itemExists(conn, itemID)
		if err != nil {
			return err
		}
		if !exists {
			return failure.Validation(op, "item %d does not exist", itemID)
		}
		for _, username := range []string{sender, receiver} {
			known, err := userExists(conn, username)
			if err != nil {
				return err
			}
			if !known {
				return failure.Validation(op, "unknown user %q", username)
			}
		}

		var latest int64
		err = sqlitex.Execute(conn, `SELECT COALESCE(MAX(sent_at), 0) FROM messages`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				latest = stmt.ColumnInt64(0)
				return nil
			},
		})
		if err != nil {
			return err
		}
		sentAt := max(nanos(s.clock.Now()), latest)

		err = sqlitex.Execute(conn,
			`INSERT INTO messages (item_id, sender, receiver, content, sent_at, is_read) VALUES (?, ?, ?, ?, ?, 0)`,
			&sqlitex.ExecOptions{Args: []any{itemID, sender, receiver, content, sentAt}})
		if err != nil {
			return err
		}

		sent = message.Message{
			ID:       conn.LastInsertRowID(),
			ItemID:   itemID,
			Sender:   sender,
			Receiver: receiver,
			Content:  content,
			SentAt:   fromNanos(sentAt),
		}
		return nil
	})
	if err != nil {
		return message.Message{}, classify(op, err)
	}

	s.logger.Debug("message stored",
		"message_id", sent.ID,
		"item_id", itemID,
		"sender", sender,
		"receiver", receiver,
	)
	return sent, nil
}

// ListReceived returns messages addressed to username, most recent
// first.
func (s *Store) ListReceived(ctx context.Context, username string) ([]message.Message, error) {
	return s.queryMessages(ctx, "list_received",
		`SELECT `+messageColumns+` FROM messages WHERE receiver = ? ORDER BY sent_at DESC, id DESC`,
		username)
}

// ListSent returns messages sent by username, most recent first.
func (s *Store) ListSent(ctx context.Context, username string) ([]message.Message, error) {
	return s.queryMessages(ctx, "list_sent",
		`SELECT `+messageColumns+` FROM messages WHERE sender = ? ORDER BY sent_at DESC, id DESC`,
		username)
}

// ListUnread returns the unread messages addressed to username, most
// recent first.
func (s *Store) ListUnread(ctx context.Context, username string) ([]message.Message, error) {
	return s.queryMessages(ctx, "list_unread",
		`SELECT `+messageColumns+` FROM messages WHERE receiver = ? AND is_read = 0 ORDER BY sent_at DESC, id DESC`,
		username)
}

// ListByItem returns every message about itemID in chronological
// order, regardless of participants.
func (s *Store) ListByItem(ctx context.Context, itemID int64) ([]message.Message, error) {
	return s.queryMessages(ctx, "list_by_item",
		`SELECT `+messageColumns+` FROM messages WHERE item_id = ? ORDER BY sent_at ASC, id ASC`,
		itemID)
}

// ListInvolving returns every message username sent or received, in
// chronological order. This is the input to the conversation index.
func (s *Store) ListInvolving(ctx context.Context, username string) ([]message.Message, error) {
	return s.queryMessages(ctx, "list_involving",
		`SELECT `+messageColumns+` FROM messages
		 WHERE sender = ? OR receiver = ?
		 ORDER BY sent_at ASC, id ASC`,
		username, username)
}

// UnreadCount returns the number of unread messages addressed to
// username.
func (s *Store) UnreadCount(ctx context.Context, username string) (int, error) {
	var count int
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT COUNT(*) FROM messages WHERE receiver = ? AND is_read = 0`,
			&sqlitex.ExecOptions{
				Args: []any{username},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					count = stmt.ColumnInt(0)
					return nil
				},
			})
	})
	if err != nil {
		return 0, classify("unread_count", err)
	}
	return count, nil
}

// HasExchanged reports whether any message about itemID exists between
// a and b, in either direction.
func (s *Store) HasExchanged(ctx context.Context, itemID int64, a, b string) (bool, error) {
	var exists bool
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT EXISTS (
				SELECT 1 FROM messages
				WHERE item_id = ? AND ((sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?))
			)`,
			&sqlitex.ExecOptions{
				Args: []any{itemID, a, b, b, a},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					exists = stmt.ColumnInt(0) != 0
					return nil
				},
			})
	})
	if err != nil {
		return false, classify("has_exchanged", err)
	}
	return exists, nil
}

// MarkRead marks a message read on behalf of requester and returns its
// resulting state. Only the receiver may mark a message read. Marking
// an already-read message is a no-op that returns the current state
// with its original ReadAt.
func (s *Store) MarkRead(ctx context.Context, messageID int64, requester string) (message.Message, error) {
	const op = "mark_read"

	var result message.Message
	changed := false
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		current, ok, err := getMessage(conn, messageID)
		if err != nil {
			return err
		}
		if !ok {
			return failure.NotFound(op, "message %d not found", messageID)
		}
		if current.Receiver != requester {
			return failure.Unauthorized(op, "only the receiver may mark message %d read", messageID)
		}
		if current.IsRead {
			result = current
			return nil
		}

		readAt := s.clock.Now().UTC()
		err = sqlitex.Execute(conn,
			`UPDATE messages SET is_read = 1, read_at = ? WHERE id = ? AND is_read = 0`,
			&sqlitex.ExecOptions{Args: []any{nanos(readAt), messageID}})
		if err != nil {
			return err
		}
		current.IsRead = true
		readAtValue := fromNanos(nanos(readAt))
		current.ReadAt = &readAtValue
		result = current
		changed = true
		return nil
	})
	if err != nil {
		return message.Message{}, classify(op, err)
	}
	if changed {
		s.logger.Debug("message marked read", "message_id", messageID, "receiver", requester)
	}
	return result, nil
}

// MarkAllRead marks every unread message addressed to username read and
// returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context, username string) (int, error) {
	const op = "mark_all_read"

	var changed int
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		err = sqlitex.Execute(conn,
			`UPDATE messages SET is_read = 1, read_at = ? WHERE receiver = ? AND is_read = 0`,
			&sqlitex.ExecOptions{Args: []any{nanos(s.clock.Now()), username}})
		if err != nil {
			return err
		}
		changed = conn.Changes()
		return nil
	})
	if err != nil {
		return 0, classify(op, err)
	}
	if changed > 0 {
		s.logger.Debug("messages marked read", "receiver", username, "count", changed)
	}
	return changed, nil
}

// queryMessages runs a message SELECT and scans every row.
func (s *Store) queryMessages(ctx context.Context, op, query string, args ...any) ([]message.Message, error) {
	var messages []message.Message
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		// Reset on retry so a half-scanned first attempt is discarded.
		messages = messages[:0]
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				messages = append(messages, scanMessage(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if messages == nil {
		messages = []message.Message{}
	}
	return messages, nil
}

// getMessage loads one message on conn.
func getMessage(conn *sqlite.Conn, messageID int64) (message.Message, bool, error) {
	var found message.Message
	var ok bool
	err := sqlitex.Execute(conn, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{messageID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = scanMessage(stmt)
			ok = true
			return nil
		},
	})
	return found, ok, err
}

// scanMessage reads a row selected with messageColumns.
func scanMessage(stmt *sqlite.Stmt) message.Message {
	return message.Message{
		ID:       stmt.ColumnInt64(0),
		ItemID:   stmt.ColumnInt64(1),
		Sender:   stmt.ColumnText(2),
		Receiver: stmt.ColumnText(3),
		Content:  stmt.ColumnText(4),
		SentAt:   fromNanos(stmt.ColumnInt64(5)),
		IsRead:   stmt.ColumnInt(6) != 0,
		ReadAt:   nullableTime(stmt, 7),
	}
}
