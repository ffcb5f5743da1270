// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import "time"

// Socket actions served by lostfound-service.
const (
	ActionStatus        = "status"
	ActionSend          = "send"
	ActionReceived      = "received"
	ActionSent          = "sent"
	ActionConversation  = "conversation"
	ActionConversations = "conversations"
	ActionMarkRead      = "mark_read"
	ActionMarkAllRead   = "mark_all_read"
	ActionUnread        = "unread"
	ActionUnreadCount   = "unread_count"
	ActionTyping        = "typing"
	ActionIsTyping      = "is_typing"
	ActionClaim         = "claim"
	ActionUnclaim       = "unclaim"
	ActionItem          = "item"
	ActionRegisterUser  = "register_user"
	ActionRegisterItem  = "register_item"
)

// SendRequest is the body of a send. The sender is the authenticated
// user and never appears in the body.
type SendRequest struct {
	Receiver string `json:"receiver_username"`
	ItemID   int64  `json:"item_id"`
	Content  string `json:"content"`
}

// ConversationRequest selects one thread. With names the counterpart
// when the caller has more than one thread on the item (only item
// creators can); empty selects the counterpart of the caller's most
// recent message on the item.
type ConversationRequest struct {
	ItemID int64  `json:"item_id"`
	With   string `json:"with,omitempty"`
}

// MessageIDRequest addresses a single message.
type MessageIDRequest struct {
	MessageID int64 `json:"message_id"`
}

// ItemIDRequest addresses a single item.
type ItemIDRequest struct {
	ItemID int64 `json:"item_id"`
}

// IsTypingRequest asks whether Username is composing on ItemID.
type IsTypingRequest struct {
	ItemID   int64  `json:"item_id"`
	Username string `json:"username"`
}

// RegisterUserRequest adds an account to the user directory.
type RegisterUserRequest struct {
	Username string `json:"username"`
}

// RegisterItemRequest adds a listing owned by the authenticated user.
type RegisterItemRequest struct {
	Title string `json:"title,omitempty"`
}

// MessagesResponse wraps a list of messages.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// CountResponse carries a count (unread count, messages marked read).
type CountResponse struct {
	Count int `json:"count"`
}

// TypingResponse reports typing presence.
type TypingResponse struct {
	IsTyping bool `json:"is_typing"`
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	ItemID           int64   `json:"item_id"`
	OtherParticipant string  `json:"other_participant"`
	LatestMessage    Message `json:"latest_message"`
	UnreadForUser    int     `json:"unread_for_user"`
	MessageCount     int     `json:"message_count"`
}

// ConversationsResponse lists a user's conversations, most recently
// active first.
type ConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// Affordances are the state-dependent actions the viewing user may take
// on an item's detail page.
type Affordances struct {
	CanContact bool `json:"can_contact"`
	CanClaim   bool `json:"can_claim"`
	CanUnclaim bool `json:"can_unclaim"`
}

// ItemStateResponse is the claim state of an item together with the
// viewer's affordances. Conversations lists the viewer's threads about
// the item, most recently active first; only item lookups fill it.
type ItemStateResponse struct {
	Item          Item                  `json:"item"`
	State         ClaimState            `json:"state"`
	Affordances   Affordances           `json:"affordances"`
	Conversations []ConversationSummary `json:"conversations,omitempty"`
}

// StatusResponse is the unauthenticated liveness response.
type StatusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	TypingSignals int     `json:"typing_signals"`
	PollInterval  string  `json:"poll_interval"`
}

// PollInterval is the cadence at which clients re-fetch conversation
// state. A committed write is visible to every poller within one
// interval.
const PollInterval = 3 * time.Second

// TypingTTL is how long one typing signal keeps a user marked as
// typing. Matches the client keystroke debounce.
const TypingTTL = 2 * time.Second
