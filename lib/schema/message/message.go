// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"
	"regexp"
	"time"
)

// Message is a direct message between two users about one item. All
// fields except IsRead and ReadAt are immutable after creation.
type Message struct {
	ID       int64     `json:"id"`
	ItemID   int64     `json:"item_id"`
	Sender   string    `json:"sender_username"`
	Receiver string    `json:"receiver_username"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
	IsRead   bool      `json:"is_read"`

	// ReadAt is set exactly once, when IsRead becomes true.
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// Counterpart returns the participant of m that is not username. If
// username is not a participant, the sender is returned.
func (m *Message) Counterpart(username string) string {
	if m.Sender == username {
		return m.Receiver
	}
	return m.Sender
}

// Involves reports whether username is the sender or receiver of m.
func (m *Message) Involves(username string) bool {
	return m.Sender == username || m.Receiver == username
}

// ClaimState is the claim lifecycle state of an item.
type ClaimState string

const (
	StateOpen    ClaimState = "open"
	StateClaimed ClaimState = "claimed"
)

// Item is the subset of a lost-and-found listing the conversation
// engine reads and writes. Listing fields beyond Title belong to the
// board's item service and are not mirrored here.
type Item struct {
	ID        int64  `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedBy string `json:"created_by"`
	IsClaimed bool   `json:"is_claimed"`

	// ClaimedAt and ClaimedBy are set on the open→claimed edge and
	// cleared on the claimed→open edge.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	ClaimedBy string     `json:"claimed_by,omitempty"`
}

// State returns the item's claim state.
func (i *Item) State() ClaimState {
	if i.IsClaimed {
		return StateClaimed
	}
	return StateOpen
}

// usernamePattern matches campus account names: a letter followed by
// letters, digits, dot, underscore, or hyphen.
var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]{0,63}$`)

// ValidateUsername checks that name is a well-formed account name.
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username is empty")
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("username %q is malformed", name)
	}
	return nil
}
