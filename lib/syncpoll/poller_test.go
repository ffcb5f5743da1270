// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syncpoll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/testutil"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeSource serves canned state and counts fetches.
type fakeSource struct {
	mu            sync.Mutex
	conversations []message.ConversationSummary
	unread        int
	thread        []message.Message
	typing        map[string]bool
	typingErr     error
	listErr       error

	conversationCalls int
	typingCalls       int
	lastWith          string
}

func (s *fakeSource) Conversations(ctx context.Context) ([]message.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.conversations, nil
}

func (s *fakeSource) UnreadCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread, nil
}

func (s *fakeSource) Conversation(ctx context.Context, itemID int64, with string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationCalls++
	s.lastWith = with
	return s.thread, nil
}

func (s *fakeSource) IsTyping(ctx context.Context, itemID int64, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingCalls++
	if s.typingErr != nil {
		return false, s.typingErr
	}
	return s.typing[username], nil
}

func (s *fakeSource) setUnread(n int) {
	s.mu.Lock()
	s.unread = n
	s.mu.Unlock()
}

func (s *fakeSource) calls() (conversation, typing int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationCalls, s.typingCalls
}

func startPoller(t *testing.T, poller *Poller) (<-chan Snapshot, context.CancelFunc, <-chan error) {
	t.Helper()
	snapshots := make(chan Snapshot, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx, func(snapshot Snapshot) { snapshots <- snapshot })
	}()
	t.Cleanup(cancel)
	return snapshots, cancel, done
}

func TestPollerTicksAtInterval(t *testing.T) {
	fakeClock := clock.Fake(epoch)
	source := &fakeSource{unread: 1}
	poller := New(Config{Source: source, Username: "bob", Clock: fakeClock})

	snapshots, cancel, done := startPoller(t, poller)

	first := testutil.RequireReceive(t, snapshots, 5*time.Second, "immediate poll")
	if first.UnreadCount != 1 || first.Open {
		t.Errorf("first snapshot = %+v", first)
	}
	if conversationCalls, _ := source.calls(); conversationCalls != 0 {
		t.Errorf("thread fetched with no open conversation")
	}

	// A write committed between ticks shows up on the next tick.
	source.setUnread(2)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(2999 * time.Millisecond)
	select {
	case early := <-snapshots:
		t.Fatalf("poll before interval elapsed: %+v", early)
	default:
	}
	fakeClock.Advance(time.Millisecond)
	second := testutil.RequireReceive(t, snapshots, 5*time.Second, "tick at 3s")
	if second.UnreadCount != 2 {
		t.Errorf("second UnreadCount = %d, want 2", second.UnreadCount)
	}
	if !second.At.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("second At = %v", second.At)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run returns"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestPollerOpenConversation(t *testing.T) {
	fakeClock := clock.Fake(epoch)
	source := &fakeSource{
		thread: []message.Message{
			{ID: 1, ItemID: 5, Sender: "alice", Receiver: "bob", SentAt: epoch},
			{ID: 2, ItemID: 5, Sender: "bob", Receiver: "alice", SentAt: epoch.Add(time.Second)},
		},
		typing: map[string]bool{"alice": true},
	}
	poller := New(Config{Source: source, Username: "bob", Clock: fakeClock})
	snapshots, _, _ := startPoller(t, poller)
	testutil.RequireReceive(t, snapshots, 5*time.Second, "immediate poll")

	// Opening polls right away.
	poller.Open(5, "")
	opened := testutil.RequireReceive(t, snapshots, 5*time.Second, "poll on open")
	if !opened.Open || opened.ItemID != 5 {
		t.Fatalf("snapshot after Open = %+v", opened)
	}
	if len(opened.Thread) != 2 {
		t.Errorf("thread length = %d, want 2", len(opened.Thread))
	}
	if opened.Counterpart != "alice" {
		t.Errorf("Counterpart = %q, want alice", opened.Counterpart)
	}
	if !opened.CounterpartTyping {
		t.Error("CounterpartTyping = false, want true")
	}

	poller.Close()
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(DefaultInterval)
	closed := testutil.RequireReceive(t, snapshots, 5*time.Second, "tick after close")
	if closed.Open || closed.Thread != nil {
		t.Errorf("snapshot after Close = %+v", closed)
	}
	conversationCalls, typingCalls := source.calls()
	if conversationCalls != 1 || typingCalls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", conversationCalls, typingCalls)
	}
}

func TestPollTypingErrorDegrades(t *testing.T) {
	source := &fakeSource{
		thread:    []message.Message{{ID: 1, ItemID: 5, Sender: "alice", Receiver: "bob"}},
		typingErr: errors.New("connection refused"),
	}
	poller := New(Config{Source: source, Username: "bob", Clock: clock.Fake(epoch)})
	poller.Open(5, "alice")

	snapshot := poller.Poll(context.Background())
	if snapshot.Err != nil {
		t.Errorf("typing failure surfaced as Err: %v", snapshot.Err)
	}
	if snapshot.CounterpartTyping {
		t.Error("CounterpartTyping = true after fetch error")
	}
	if source.lastWith != "alice" {
		t.Errorf("Conversation called with %q, want alice", source.lastWith)
	}
}

func TestPollReportsFetchError(t *testing.T) {
	source := &fakeSource{listErr: errors.New("store unavailable"), unread: 3}
	poller := New(Config{Source: source, Username: "bob", Clock: clock.Fake(epoch)})

	snapshot := poller.Poll(context.Background())
	if snapshot.Err == nil {
		t.Fatal("Err = nil, want conversations failure")
	}
	if snapshot.UnreadCount != 3 {
		t.Errorf("UnreadCount = %d, want 3 despite list failure", snapshot.UnreadCount)
	}

	source.mu.Lock()
	source.listErr = nil
	source.mu.Unlock()
	if retry := poller.Poll(context.Background()); retry.Err != nil {
		t.Errorf("retry Err = %v", retry.Err)
	}
}

func TestPollWithoutCounterpartSkipsTyping(t *testing.T) {
	source := &fakeSource{}
	poller := New(Config{Source: source, Username: "bob", Clock: clock.Fake(epoch)})
	poller.Open(5, "")

	snapshot := poller.Poll(context.Background())
	if snapshot.Counterpart != "" || snapshot.CounterpartTyping {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if _, typingCalls := source.calls(); typingCalls != 0 {
		t.Errorf("typing fetched %d times with no counterpart", typingCalls)
	}
}
