// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncpoll is the client side of the polling contract. A
// Poller re-fetches a user's conversation list and unread count on a
// fixed interval and, while a conversation is open, that thread and
// the counterpart's typing state. There is no push channel: a write
// committed on the server is observed on the next tick.
//
// Polling never marks anything read. The server keeps no per-poller
// state, so cancelling a Poller needs no server-side cleanup.
package syncpoll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/conversation"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = message.PollInterval

// Source is the read surface a Poller fetches from, already bound to
// the polling user.
type Source interface {
	Conversations(ctx context.Context) ([]message.ConversationSummary, error)
	UnreadCount(ctx context.Context) (int, error)
	Conversation(ctx context.Context, itemID int64, with string) ([]message.Message, error)
	IsTyping(ctx context.Context, itemID int64, username string) (bool, error)
}

// Snapshot is the result of one poll.
type Snapshot struct {
	At            time.Time
	Conversations []message.ConversationSummary
	UnreadCount   int

	// Open is true when a conversation was open during the poll; the
	// remaining thread fields are meaningful only then.
	Open              bool
	ItemID            int64
	Counterpart       string
	Thread            []message.Message
	CounterpartTyping bool

	// Err is the first fetch failure of this poll. The next tick
	// retries everything.
	Err error
}

// Config holds the parameters for a Poller.
type Config struct {
	Source Source

	// Username is the polling user; it identifies the counterpart in an
	// open thread.
	Username string

	// Interval defaults to DefaultInterval.
	Interval time.Duration

	// Clock is required.
	Clock clock.Clock

	Logger *slog.Logger
}

// Poller periodically fetches conversation state. Open and Close are
// safe to call from any goroutine while Run is active.
type Poller struct {
	source   Source
	username string
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	open    bool
	itemID  int64
	with    string
	refresh chan struct{}
}

// New returns a Poller. Panics if cfg.Source or cfg.Clock is nil.
func New(cfg Config) *Poller {
	if cfg.Source == nil {
		panic("syncpoll: Source is required")
	}
	if cfg.Clock == nil {
		panic("syncpoll: Clock is required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		source:   cfg.Source,
		username: cfg.Username,
		interval: interval,
		clock:    cfg.Clock,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
	}
}

// Open starts following the conversation about itemID. With names the
// counterpart; when empty it is derived from the thread. Run polls
// immediately after Open instead of waiting for the next tick.
func (p *Poller) Open(itemID int64, with string) {
	p.mu.Lock()
	p.open = true
	p.itemID = itemID
	p.with = with
	p.mu.Unlock()
	p.requestRefresh()
}

// Close stops following the open conversation.
func (p *Poller) Close() {
	p.mu.Lock()
	p.open = false
	p.itemID = 0
	p.with = ""
	p.mu.Unlock()
}

func (p *Poller) requestRefresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run polls once immediately and then once per interval, delivering
// every Snapshot to handler on Run's goroutine. Returns ctx.Err() when
// ctx is cancelled.
func (p *Poller) Run(ctx context.Context, handler func(Snapshot)) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	handler(p.Poll(ctx))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-p.refresh:
		}
		snapshot := p.Poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		handler(snapshot)
	}
}

// Poll performs one fetch cycle.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	p.mu.Lock()
	open, itemID, with := p.open, p.itemID, p.with
	p.mu.Unlock()

	snapshot := Snapshot{At: p.clock.Now(), Open: open, ItemID: itemID}
	record := func(what string, err error) {
		if snapshot.Err == nil {
			snapshot.Err = fmt.Errorf("fetching %s: %w", what, err)
		}
		p.logger.Warn("poll fetch failed", "what", what, "error", err)
	}

	conversations, err := p.source.Conversations(ctx)
	if err != nil {
		record("conversations", err)
	}
	snapshot.Conversations = conversations

	unread, err := p.source.UnreadCount(ctx)
	if err != nil {
		record("unread count", err)
	}
	snapshot.UnreadCount = unread

	if !open {
		return snapshot
	}

	thread, err := p.source.Conversation(ctx, itemID, with)
	if err != nil {
		record("conversation", err)
	}
	snapshot.Thread = thread

	counterpart := with
	if counterpart == "" {
		counterpart = conversation.Counterpart(p.username, thread)
	}
	snapshot.Counterpart = counterpart
	if counterpart == "" {
		return snapshot
	}

	typing, err := p.source.IsTyping(ctx, itemID, counterpart)
	if err != nil {
		p.logger.Debug("typing fetch failed, treating as not typing",
			"item_id", itemID,
			"counterpart", counterpart,
			"error", err,
		)
		typing = false
	}
	snapshot.CounterpartTyping = typing
	return snapshot
}
