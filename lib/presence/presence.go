// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence tracks who is typing in which item's conversation.
//
// A typing signal lives for a fixed TTL after the most recent keystroke
// report. There is no explicit stop: a user stops typing when their
// signal expires. Signals are held in memory only and do not survive a
// restart.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

// DefaultMaxEntries bounds the number of live signals.
const DefaultMaxEntries = 65536

// Config holds the parameters for a Tracker.
type Config struct {
	// Clock is required.
	Clock clock.Clock

	// TTL is how long a signal lasts. Defaults to message.TypingTTL.
	TTL time.Duration

	// SweepInterval is the period of Run's background sweep. Defaults
	// to TTL and is clamped to at most TTL.
	SweepInterval time.Duration

	// MaxEntries bounds memory. Defaults to DefaultMaxEntries.
	MaxEntries int

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

type key struct {
	itemID   int64
	username string
}

// Tracker holds typing signals. Safe for concurrent use.
type Tracker struct {
	clock         clock.Clock
	ttl           time.Duration
	sweepInterval time.Duration
	maxEntries    int
	logger        *slog.Logger

	mu      sync.Mutex
	expires map[key]time.Time

	// afterSweep, if set, is called by Run after each background sweep.
	afterSweep func(removed int)
}

// New returns a Tracker. Panics if cfg.Clock is nil.
func New(cfg Config) *Tracker {
	if cfg.Clock == nil {
		panic("presence: Clock is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = message.TypingTTL
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 || sweepInterval > ttl {
		sweepInterval = ttl
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		clock:         cfg.Clock,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		maxEntries:    maxEntries,
		logger:        logger,
		expires:       make(map[key]time.Time),
	}
}

// TTL returns the configured signal lifetime.
func (t *Tracker) TTL() time.Duration { return t.ttl }

// Signal records that username is typing on itemID, extending any
// existing signal to now + TTL. Returns false if the tracker is full
// even after sweeping, in which case the signal is dropped.
func (t *Tracker) Signal(itemID int64, username string) bool {
	now := t.clock.Now()
	k := key{itemID: itemID, username: username}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.expires[k]; !exists && len(t.expires) >= t.maxEntries {
		t.sweepLocked(now)
		if len(t.expires) >= t.maxEntries {
			t.logger.Warn("typing tracker full, dropping signal",
				"item_id", itemID,
				"username", username,
				"max_entries", t.maxEntries,
			)
			return false
		}
	}
	t.expires[k] = now.Add(t.ttl)
	return true
}

// IsTyping reports whether username has an unexpired signal on itemID.
// An expired signal is removed.
func (t *Tracker) IsTyping(itemID int64, username string) bool {
	now := t.clock.Now()
	k := key{itemID: itemID, username: username}

	t.mu.Lock()
	defer t.mu.Unlock()

	expiresAt, ok := t.expires[k]
	if !ok {
		return false
	}
	if !expiresAt.After(now) {
		delete(t.expires, k)
		return false
	}
	return true
}

// Sweep removes every expired signal and returns how many it removed.
func (t *Tracker) Sweep() int {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked(now)
}

func (t *Tracker) sweepLocked(now time.Time) int {
	removed := 0
	for k, expiresAt := range t.expires {
		if !expiresAt.After(now) {
			delete(t.expires, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored signals, including expired ones not
// yet swept.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.expires)
}

// Run sweeps expired signals every sweep interval until ctx is
// cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := t.Sweep()
			if removed > 0 {
				t.logger.Debug("swept expired typing signals", "removed", removed)
			}
			if t.afterSweep != nil {
				t.afterSweep(removed)
			}
		}
	}
}
