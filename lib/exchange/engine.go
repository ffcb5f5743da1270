// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package exchange is the conversation engine used by both transports.
// It composes the message store, conversation index, typing tracker,
// and claim gate behind one API in which every method takes the
// authenticated username explicitly.
package exchange

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/lostfound/lib/claimgate"
	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/conversation"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/messagestore"
	"github.com/bureau-foundation/lostfound/lib/presence"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

// Config wires an Engine.
type Config struct {
	Store    *messagestore.Store
	Presence *presence.Tracker
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Engine serves the conversation API. Safe for concurrent use.
type Engine struct {
	store    *messagestore.Store
	presence *presence.Tracker
	gate     *claimgate.Gate
	clock    clock.Clock
	logger   *slog.Logger
	started  time.Time
}

// New returns an Engine over cfg's collaborators.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:    cfg.Store,
		presence: cfg.Presence,
		gate:     claimgate.New(cfg.Store, cfg.Clock, logger),
		clock:    cfg.Clock,
		logger:   logger,
		started:  cfg.Clock.Now(),
	}
}

func requireUser(op, username string) error {
	if username == "" {
		return failure.Unauthorized(op, "request has no authenticated user")
	}
	return nil
}

// Send posts a message from the authenticated user. The request is
// validated before the claim gate is consulted, so a malformed send is
// reported as such even on a claimed item.
func (e *Engine) Send(ctx context.Context, user string, request message.SendRequest) (message.Message, error) {
	const op = "send"
	if err := requireUser(op, user); err != nil {
		return message.Message{}, err
	}
	if strings.TrimSpace(request.Content) == "" {
		return message.Message{}, failure.Validation(op, "message content is empty")
	}
	if request.Receiver == user {
		return message.Message{}, failure.Validation(op, "cannot send a message to yourself")
	}
	if err := message.ValidateUsername(request.Receiver); err != nil {
		return message.Message{}, failure.Validation(op, "receiver: %v", err)
	}
	known, err := e.store.UserExists(ctx, request.Receiver)
	if err != nil {
		return message.Message{}, err
	}
	if !known {
		return message.Message{}, failure.Validation(op, "unknown user %q", request.Receiver)
	}
	if err := e.gate.CheckSend(ctx, request.ItemID, user, request.Receiver); err != nil {
		return message.Message{}, err
	}
	sent, err := e.store.Send(ctx, user, request.Receiver, request.ItemID, request.Content)
	if err != nil {
		return message.Message{}, err
	}
	e.logger.Debug("message sent",
		"message_id", sent.ID,
		"item_id", sent.ItemID,
		"sender", user,
		"receiver", sent.Receiver,
	)
	return sent, nil
}

// Received lists the user's inbox, most recent first.
func (e *Engine) Received(ctx context.Context, user string) ([]message.Message, error) {
	if err := requireUser("received", user); err != nil {
		return nil, err
	}
	return e.store.ListReceived(ctx, user)
}

// Sent lists the user's outbox, most recent first.
func (e *Engine) Sent(ctx context.Context, user string) ([]message.Message, error) {
	if err := requireUser("sent", user); err != nil {
		return nil, err
	}
	return e.store.ListSent(ctx, user)
}

// Unread lists the user's unread messages, most recent first.
func (e *Engine) Unread(ctx context.Context, user string) ([]message.Message, error) {
	if err := requireUser("unread", user); err != nil {
		return nil, err
	}
	return e.store.ListUnread(ctx, user)
}

// Conversation returns the user's thread with one counterpart on an
// item, in chronological order. With empty request.With the counterpart
// is the other participant of the user's most recent message on the
// item, so an item creator talking to several claimants gets one pair
// and never a merge of all of them.
func (e *Engine) Conversation(ctx context.Context, user string, request message.ConversationRequest) ([]message.Message, error) {
	const op = "conversation"
	if err := requireUser(op, user); err != nil {
		return nil, err
	}
	if request.With == user {
		return nil, failure.Validation(op, "a conversation needs a counterpart other than yourself")
	}
	if _, err := e.store.GetItem(ctx, request.ItemID); err != nil {
		return nil, err
	}
	onItem, err := e.store.ListByItem(ctx, request.ItemID)
	if err != nil {
		return nil, err
	}
	with := request.With
	if with == "" {
		with = conversation.Counterpart(user, onItem)
	}
	thread := make([]message.Message, 0, len(onItem))
	for _, m := range onItem {
		if m.Involves(user) && m.Involves(with) {
			thread = append(thread, m)
		}
	}
	return thread, nil
}

// Conversations returns the user's conversation summaries, most
// recently active first.
func (e *Engine) Conversations(ctx context.Context, user string) ([]message.ConversationSummary, error) {
	if err := requireUser("conversations", user); err != nil {
		return nil, err
	}
	involving, err := e.store.ListInvolving(ctx, user)
	if err != nil {
		return nil, err
	}
	return conversation.Build(user, involving), nil
}

// MarkRead marks one message read. Only its receiver may.
func (e *Engine) MarkRead(ctx context.Context, user string, messageID int64) (message.Message, error) {
	if err := requireUser("mark_read", user); err != nil {
		return message.Message{}, err
	}
	return e.store.MarkRead(ctx, messageID, user)
}

// MarkAllRead marks every unread message addressed to the user read.
func (e *Engine) MarkAllRead(ctx context.Context, user string) (int, error) {
	if err := requireUser("mark_all_read", user); err != nil {
		return 0, err
	}
	return e.store.MarkAllRead(ctx, user)
}

// UnreadCount returns the number of unread messages addressed to the
// user.
func (e *Engine) UnreadCount(ctx context.Context, user string) (int, error) {
	if err := requireUser("unread_count", user); err != nil {
		return 0, err
	}
	return e.store.UnreadCount(ctx, user)
}

// SignalTyping records that the user is composing on an item.
// Presence is best-effort: a dropped signal is not an error.
func (e *Engine) SignalTyping(ctx context.Context, user string, itemID int64) error {
	if err := requireUser("typing", user); err != nil {
		return err
	}
	if itemID <= 0 {
		return failure.Validation("typing", "item id must be positive")
	}
	e.presence.Signal(itemID, user)
	return nil
}

// IsTyping reports whether username is composing on itemID.
func (e *Engine) IsTyping(ctx context.Context, user string, request message.IsTypingRequest) (bool, error) {
	if err := requireUser("is_typing", user); err != nil {
		return false, err
	}
	return e.presence.IsTyping(request.ItemID, request.Username), nil
}

// Claim marks an item claimed. Only its creator may.
func (e *Engine) Claim(ctx context.Context, user string, itemID int64) (message.ItemStateResponse, error) {
	if err := requireUser("claim", user); err != nil {
		return message.ItemStateResponse{}, err
	}
	return e.gate.Claim(ctx, itemID, user)
}

// Unclaim reopens an item. Only its creator may.
func (e *Engine) Unclaim(ctx context.Context, user string, itemID int64) (message.ItemStateResponse, error) {
	if err := requireUser("unclaim", user); err != nil {
		return message.ItemStateResponse{}, err
	}
	return e.gate.Unclaim(ctx, itemID, user)
}

// Item returns an item's claim state, the user's affordances, and the
// user's conversations about it. An anonymous viewer gets neither
// affordances nor conversations.
func (e *Engine) Item(ctx context.Context, user string, itemID int64) (message.ItemStateResponse, error) {
	state, err := e.gate.State(ctx, itemID, user)
	if err != nil || user == "" {
		return state, err
	}
	summaries, err := e.Conversations(ctx, user)
	if err != nil {
		return message.ItemStateResponse{}, err
	}
	state.Conversations = conversation.ByItem(summaries)[itemID]
	return state, nil
}

// RegisterUser adds an account to the directory.
func (e *Engine) RegisterUser(ctx context.Context, username string) error {
	if err := e.store.RegisterUser(ctx, username); err != nil {
		return err
	}
	e.logger.Debug("user registered", "username", username)
	return nil
}

// RegisterItem creates an OPEN item owned by the user.
func (e *Engine) RegisterItem(ctx context.Context, user string, request message.RegisterItemRequest) (message.Item, error) {
	if err := requireUser("register_item", user); err != nil {
		return message.Item{}, err
	}
	return e.store.RegisterItem(ctx, request.Title, user)
}

// Status reports liveness information.
func (e *Engine) Status() message.StatusResponse {
	return message.StatusResponse{
		UptimeSeconds: e.clock.Now().Sub(e.started).Seconds(),
		TypingSignals: e.presence.Len(),
		PollInterval:  message.PollInterval.String(),
	}
}
