// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/messagestore"
	"github.com/bureau-foundation/lostfound/lib/presence"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *clock.FakeClock) {
	t.Helper()
	ctx := context.Background()

	fakeClock := clock.Fake(epoch)
	store, err := messagestore.Open(messagestore.Config{
		Path:   filepath.Join(t.TempDir(), "engine.db"),
		Clock:  fakeClock,
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("messagestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := New(Config{
		Store:    store,
		Presence: presence.New(presence.Config{Clock: fakeClock}),
		Clock:    fakeClock,
		Logger:   slog.Default(),
	})
	for _, username := range []string{"alice", "bob", "carol"} {
		if err := engine.RegisterUser(ctx, username); err != nil {
			t.Fatal(err)
		}
	}
	return engine, fakeClock
}

func registerItem(t *testing.T, engine *Engine, creator string) int64 {
	t.Helper()
	item, err := engine.RegisterItem(context.Background(), creator, message.RegisterItemRequest{Title: "wallet"})
	if err != nil {
		t.Fatalf("RegisterItem: %v", err)
	}
	return item.ID
}

func unreadCount(t *testing.T, engine *Engine, user string) int {
	t.Helper()
	count, err := engine.UnreadCount(context.Background(), user)
	if err != nil {
		t.Fatalf("UnreadCount(%s): %v", user, err)
	}
	return count
}

// alice found bob's wallet and tells him; bob reads it, his unread
// count drops to zero, and alice's view of the thread shows it read.
func TestFoundWalletReadReceipt(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	itemID := registerItem(t, engine, "alice")

	sent, err := engine.Send(ctx, "alice", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "Found your wallet"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := unreadCount(t, engine, "bob"); got != 1 {
		t.Fatalf("bob unread = %d, want 1", got)
	}

	// Fetching is non-destructive.
	if _, err := engine.Received(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Conversation(ctx, "bob", message.ConversationRequest{ItemID: itemID}); err != nil {
		t.Fatal(err)
	}
	if got := unreadCount(t, engine, "bob"); got != 1 {
		t.Fatalf("bob unread after fetch = %d, want 1", got)
	}

	if _, err := engine.MarkRead(ctx, "bob", sent.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if got := unreadCount(t, engine, "bob"); got != 0 {
		t.Errorf("bob unread after read = %d, want 0", got)
	}

	thread, err := engine.Conversation(ctx, "alice", message.ConversationRequest{ItemID: itemID})
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 1 || !thread[0].IsRead {
		t.Errorf("alice's thread = %+v, want one read message", thread)
	}

	// Reading again is idempotent and never reverts.
	again, err := engine.MarkRead(ctx, "bob", sent.ID)
	if err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if !again.IsRead || again.ReadAt == nil || !again.ReadAt.Equal(*thread[0].ReadAt) {
		t.Errorf("second MarkRead = %+v", again)
	}
}

// Unread count equals the number of unread messages received after
// every operation in a mixed sequence.
func TestUnreadCountMatchesInbox(t *testing.T) {
	engine, fakeClock := newTestEngine(t)
	ctx := context.Background()
	first := registerItem(t, engine, "bob")
	second := registerItem(t, engine, "bob")

	check := func(step string) {
		t.Helper()
		received, err := engine.Received(ctx, "bob")
		if err != nil {
			t.Fatal(err)
		}
		want := 0
		for _, m := range received {
			if !m.IsRead {
				want++
			}
		}
		if got := unreadCount(t, engine, "bob"); got != want {
			t.Errorf("%s: UnreadCount = %d, inbox unread = %d", step, got, want)
		}
		summaries, err := engine.Conversations(ctx, "bob")
		if err != nil {
			t.Fatal(err)
		}
		total := 0
		for _, summary := range summaries {
			total += summary.UnreadForUser
		}
		if total != want {
			t.Errorf("%s: summary unread total = %d, want %d", step, total, want)
		}
	}

	var ids []int64
	for i, request := range []struct {
		from   string
		itemID int64
	}{{"alice", first}, {"carol", second}, {"alice", first}} {
		fakeClock.Advance(time.Duration(i+1) * time.Second)
		sent, err := engine.Send(ctx, request.from, message.SendRequest{Receiver: "bob", ItemID: request.itemID, Content: "hi"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, sent.ID)
		check("after send")
	}

	if _, err := engine.MarkRead(ctx, "bob", ids[1]); err != nil {
		t.Fatal(err)
	}
	check("after mark read")

	if _, err := engine.Send(ctx, "bob", message.SendRequest{Receiver: "alice", ItemID: first, Content: "yes"}); err != nil {
		t.Fatal(err)
	}
	check("after reply")

	changed, err := engine.MarkAllRead(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 2 {
		t.Errorf("MarkAllRead changed %d, want 2", changed)
	}
	check("after mark all read")

	summaries, err := engine.Conversations(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].ItemID != first || summaries[0].OtherParticipant != "alice" {
		t.Errorf("summaries = %+v, want item %d with alice first", summaries, first)
	}
}

// bob claims his item; carol cannot start a new conversation but alice
// keeps hers.
func TestClaimBlocksOnlyNewContact(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	itemID := registerItem(t, engine, "bob")

	if _, err := engine.Send(ctx, "alice", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "mine"}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Claim(ctx, "bob", itemID); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	_, err := engine.Send(ctx, "carol", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "also mine"})
	if !failure.Is(err, failure.KindAuthorization) {
		t.Fatalf("carol's send = %v, want authorization failure", err)
	}
	if _, err := engine.Send(ctx, "alice", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "when can I pick it up?"}); err != nil {
		t.Errorf("alice's send after claim: %v", err)
	}

	thread, err := engine.Conversation(ctx, "bob", message.ConversationRequest{ItemID: itemID, With: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 2 {
		t.Errorf("bob's thread with alice has %d messages, want 2", len(thread))
	}
	if got := unreadCount(t, engine, "bob"); got != 2 {
		t.Errorf("bob unread = %d, want 2 (carol's message was rejected)", got)
	}

	state, err := engine.Item(ctx, "carol", itemID)
	if err != nil {
		t.Fatal(err)
	}
	if state.State != message.StateClaimed || state.Affordances.CanContact {
		t.Errorf("carol's view = %+v", state)
	}
}

// bob created the item and hears from both alice and carol about it.
// His default thread is the pair with whoever wrote last, never a merge
// of both claimants.
func TestDefaultThreadIsOnePair(t *testing.T) {
	engine, fakeClock := newTestEngine(t)
	ctx := context.Background()
	itemID := registerItem(t, engine, "bob")

	fromAlice, err := engine.Send(ctx, "alice", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "is it brown leather?"})
	if err != nil {
		t.Fatal(err)
	}
	fakeClock.Advance(time.Second)
	fromCarol, err := engine.Send(ctx, "carol", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "I lost mine near the library"})
	if err != nil {
		t.Fatal(err)
	}

	thread, err := engine.Conversation(ctx, "bob", message.ConversationRequest{ItemID: itemID})
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 1 || thread[0].ID != fromCarol.ID {
		t.Fatalf("bob's default thread = %+v, want only carol's message %d", thread, fromCarol.ID)
	}

	withAlice, err := engine.Conversation(ctx, "bob", message.ConversationRequest{ItemID: itemID, With: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(withAlice) != 1 || withAlice[0].ID != fromAlice.ID {
		t.Errorf("bob's thread with alice = %+v, want only message %d", withAlice, fromAlice.ID)
	}

	aliceThread, err := engine.Conversation(ctx, "alice", message.ConversationRequest{ItemID: itemID})
	if err != nil {
		t.Fatal(err)
	}
	if len(aliceThread) != 1 || aliceThread[0].ID != fromAlice.ID {
		t.Errorf("alice's default thread = %+v, want only her own message", aliceThread)
	}

	carolWithAlice, err := engine.Conversation(ctx, "carol", message.ConversationRequest{ItemID: itemID, With: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(carolWithAlice) != 0 {
		t.Errorf("carol's thread with alice = %+v, want empty", carolWithAlice)
	}

	_, err = engine.Conversation(ctx, "bob", message.ConversationRequest{ItemID: itemID, With: "bob"})
	if !failure.Is(err, failure.KindValidation) {
		t.Errorf("thread with oneself = %v, want validation failure", err)
	}

	state, err := engine.Item(ctx, "bob", itemID)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Conversations) != 2 ||
		state.Conversations[0].OtherParticipant != "carol" ||
		state.Conversations[1].OtherParticipant != "alice" {
		t.Errorf("bob's conversations about the item = %+v, want carol then alice", state.Conversations)
	}
	anonymous, err := engine.Item(ctx, "", itemID)
	if err != nil {
		t.Fatal(err)
	}
	if len(anonymous.Conversations) != 0 {
		t.Errorf("anonymous item view lists conversations: %+v", anonymous.Conversations)
	}
}

// A malformed send on a claimed item reports the malformation, not the
// claim.
func TestSendValidatedBeforeClaimGate(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	itemID := registerItem(t, engine, "bob")
	if _, err := engine.Claim(ctx, "bob", itemID); err != nil {
		t.Fatal(err)
	}

	for _, test := range []struct {
		name    string
		request message.SendRequest
		want    failure.Kind
	}{
		{"blank content", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "  \n"}, failure.KindValidation},
		{"to self", message.SendRequest{Receiver: "carol", ItemID: itemID, Content: "hi"}, failure.KindValidation},
		{"unknown receiver", message.SendRequest{Receiver: "zed", ItemID: itemID, Content: "hi"}, failure.KindValidation},
		{"new contact on claimed item", message.SendRequest{Receiver: "bob", ItemID: itemID, Content: "hi"}, failure.KindAuthorization},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := engine.Send(ctx, "carol", test.request)
			if got := failure.KindOf(err); got != test.want {
				t.Errorf("Send = %v (kind %q), want %q", err, got, test.want)
			}
		})
	}
}

// alice types at t=0; bob sees it at 1000ms and not at 2500ms.
func TestTypingVisibleWithinTTL(t *testing.T) {
	engine, fakeClock := newTestEngine(t)
	ctx := context.Background()
	itemID := registerItem(t, engine, "bob")

	if err := engine.SignalTyping(ctx, "alice", itemID); err != nil {
		t.Fatal(err)
	}
	request := message.IsTypingRequest{ItemID: itemID, Username: "alice"}

	fakeClock.Advance(1000 * time.Millisecond)
	typing, err := engine.IsTyping(ctx, "bob", request)
	if err != nil || !typing {
		t.Errorf("at 1000ms IsTyping = %v, %v; want true", typing, err)
	}

	fakeClock.Advance(1500 * time.Millisecond)
	typing, err = engine.IsTyping(ctx, "bob", request)
	if err != nil || typing {
		t.Errorf("at 2500ms IsTyping = %v, %v; want false", typing, err)
	}
}

func TestRequiresAuthenticatedUser(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Received(ctx, ""); !failure.Is(err, failure.KindAuthorization) {
		t.Errorf("Received without user = %v", err)
	}
	if _, err := engine.Send(ctx, "", message.SendRequest{Receiver: "bob", ItemID: 1, Content: "x"}); !failure.Is(err, failure.KindAuthorization) {
		t.Errorf("Send without user = %v", err)
	}
	if err := engine.SignalTyping(ctx, "", 1); !failure.Is(err, failure.KindAuthorization) {
		t.Errorf("SignalTyping without user = %v", err)
	}
}

func TestConversationUnknownItem(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Conversation(context.Background(), "alice", message.ConversationRequest{ItemID: 404})
	if !failure.Is(err, failure.KindNotFound) {
		t.Errorf("Conversation(404) = %v, want not-found failure", err)
	}
}

func TestStatus(t *testing.T) {
	engine, fakeClock := newTestEngine(t)
	if err := engine.SignalTyping(context.Background(), "alice", 1); err != nil {
		t.Fatal(err)
	}
	fakeClock.Advance(90 * time.Second)

	status := engine.Status()
	if status.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds = %v, want 90", status.UptimeSeconds)
	}
	if status.TypingSignals != 1 {
		t.Errorf("TypingSignals = %d, want 1 (unswept)", status.TypingSignals)
	}
	if status.PollInterval != "3s" {
		t.Errorf("PollInterval = %q", status.PollInterval)
	}
}
