// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/syncpoll"
)

var sentAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type followed struct {
	itemID int64
	with   string
}

type fakeFollower struct {
	opened []followed
	closes int
}

func (f *fakeFollower) Open(itemID int64, with string) {
	f.opened = append(f.opened, followed{itemID: itemID, with: with})
}

func (f *fakeFollower) Close() { f.closes++ }

type fakeMarker struct {
	mu     sync.Mutex
	marked []int64
	err    error
}

func (f *fakeMarker) MarkRead(ctx context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, messageID)
	return f.err
}

// testSnapshot is bob's view: alice and carol both wrote to him about
// item 3, and alice's unread message is the latest.
func testSnapshot() syncpoll.Snapshot {
	fromAlice := message.Message{ID: 2, ItemID: 3, Sender: "alice", Receiver: "bob", Content: "I found your wallet", SentAt: sentAt.Add(time.Minute)}
	fromCarol := message.Message{ID: 1, ItemID: 3, Sender: "carol", Receiver: "bob", Content: "is it brown?", SentAt: sentAt, IsRead: true}
	return syncpoll.Snapshot{
		At: sentAt.Add(2 * time.Minute),
		Conversations: []message.ConversationSummary{
			{ItemID: 3, OtherParticipant: "alice", LatestMessage: fromAlice, UnreadForUser: 1, MessageCount: 1},
			{ItemID: 3, OtherParticipant: "carol", LatestMessage: fromCarol, MessageCount: 1},
		},
		UnreadCount: 1,
	}
}

// openSnapshot is testSnapshot with bob's thread with alice open.
func openSnapshot() syncpoll.Snapshot {
	snapshot := testSnapshot()
	snapshot.Open = true
	snapshot.ItemID = 3
	snapshot.Counterpart = "alice"
	snapshot.Thread = []message.Message{
		{ID: 2, ItemID: 3, Sender: "alice", Receiver: "bob", Content: "I found your wallet", SentAt: sentAt.Add(time.Minute)},
		{ID: 4, ItemID: 3, Sender: "bob", Receiver: "alice", Content: "thank you!", SentAt: sentAt.Add(90 * time.Second)},
	}
	snapshot.CounterpartTyping = true
	return snapshot
}

// runCommand executes command and any batch it expands to, returning
// the produced messages.
func runCommand(command tea.Cmd) []tea.Msg {
	if command == nil {
		return nil
	}
	produced := command()
	batch, ok := produced.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{produced}
	}
	var messages []tea.Msg
	for _, inner := range batch {
		messages = append(messages, runCommand(inner)...)
	}
	return messages
}

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, model Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, command := model.Update(msg)
	return updated.(Model), command
}

func TestModelView(t *testing.T) {
	model := NewModel("bob", &fakeFollower{}, &fakeMarker{})

	if view := model.View(); view != "Waiting for the first poll..." {
		t.Errorf("view before the first snapshot = %q", view)
	}

	model, command := update(t, model, testSnapshot())
	if command != nil {
		t.Error("a snapshot with no open thread produced a command")
	}
	view := model.View()
	for _, want := range []string{"lostfound: bob", "1 unread", "alice", "carol", "I found your wallet", "q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "is typing") {
		t.Errorf("view shows typing with no open thread:\n%s", view)
	}

	model, _ = update(t, model, openSnapshot())
	view = model.View()
	for _, want := range []string{"item 3 with alice", "thank you!", "alice is typing..."} {
		if !strings.Contains(view, want) {
			t.Errorf("open thread view missing %q:\n%s", want, view)
		}
	}
}

func TestModelEmptyState(t *testing.T) {
	model := NewModel("dave", &fakeFollower{}, nil)
	model, _ = update(t, model, syncpoll.Snapshot{At: sentAt})
	if view := model.View(); !strings.Contains(view, "no conversations") || !strings.Contains(view, "0 unread") {
		t.Errorf("empty view:\n%s", view)
	}
}

func TestModelSyncError(t *testing.T) {
	model := NewModel("bob", &fakeFollower{}, nil)
	snapshot := testSnapshot()
	snapshot.Err = errors.New("fetching conversations: connection refused")
	model, _ = update(t, model, snapshot)
	if view := model.View(); !strings.Contains(view, "sync error: fetching conversations: connection refused") {
		t.Errorf("view does not surface the poll failure:\n%s", view)
	}
}

func TestModelNavigationSwitchesConversation(t *testing.T) {
	follower := &fakeFollower{}
	model := NewModel("bob", follower, nil)
	model, _ = update(t, model, testSnapshot())

	model, _ = update(t, model, keyRunes('k'))
	if model.cursor != 0 {
		t.Errorf("cursor after k at the top = %d, want 0", model.cursor)
	}
	model, _ = update(t, model, keyRunes('j'))
	if model.cursor != 1 {
		t.Fatalf("cursor after j = %d, want 1", model.cursor)
	}
	model, _ = update(t, model, keyRunes('j'))
	if model.cursor != 1 {
		t.Errorf("cursor after j at the bottom = %d, want 1", model.cursor)
	}

	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(follower.opened) != 1 || follower.opened[0] != (followed{itemID: 3, with: "carol"}) {
		t.Fatalf("enter followed %+v, want item 3 with carol", follower.opened)
	}

	// Tab wraps around to the first conversation and follows it.
	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyTab})
	if model.cursor != 0 {
		t.Errorf("cursor after tab = %d, want 0", model.cursor)
	}
	if len(follower.opened) != 2 || follower.opened[1] != (followed{itemID: 3, with: "alice"}) {
		t.Fatalf("tab followed %+v, want item 3 with alice", follower.opened)
	}

	model, _ = update(t, model, openSnapshot())
	if view := model.View(); !strings.Contains(view, ">*item 3") {
		t.Errorf("followed conversation is not marked in the list:\n%s", view)
	}

	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if follower.closes != 1 {
		t.Errorf("esc closed %d times, want 1", follower.closes)
	}
	if view := model.View(); strings.Contains(view, "item 3 with alice") {
		t.Errorf("thread still shown after esc:\n%s", view)
	}
}

func TestModelMarksOpenThreadReadOnView(t *testing.T) {
	marker := &fakeMarker{}
	model := NewModel("bob", &fakeFollower{}, marker)

	model, command := update(t, model, openSnapshot())
	if command == nil {
		t.Fatal("an open thread with an unread message produced no command")
	}

	// A second poll before the mark completes does not mark again.
	model, again := update(t, model, openSnapshot())
	if again != nil {
		t.Error("message with a mark in flight was marked a second time")
	}

	results := runCommand(command)
	if len(marker.marked) != 1 || marker.marked[0] != 2 {
		t.Fatalf("marked %v, want only alice's message 2 (bob's own reply is not his to mark)", marker.marked)
	}
	for _, result := range results {
		model, _ = update(t, model, result)
	}

	view := model.View()
	if !strings.Contains(view, "0 unread") {
		t.Errorf("unread count did not drop after marking:\n%s", view)
	}
	if model.snapshot.Conversations[0].UnreadForUser != 0 {
		t.Errorf("alice's conversation unread = %d, want 0", model.snapshot.Conversations[0].UnreadForUser)
	}

	// Conversation list polls alone never mark anything.
	marker.marked = nil
	model, command = update(t, model, testSnapshot())
	if command != nil || len(marker.marked) != 0 {
		t.Errorf("closed thread snapshot marked %v", marker.marked)
	}
}

func TestModelMarkFailureShown(t *testing.T) {
	marker := &fakeMarker{err: errors.New("service unavailable")}
	model := NewModel("bob", &fakeFollower{}, marker)

	model, command := update(t, model, openSnapshot())
	for _, result := range runCommand(command) {
		model, _ = update(t, model, result)
	}
	view := model.View()
	if !strings.Contains(view, "mark read failed: service unavailable") {
		t.Errorf("view does not surface the mark failure:\n%s", view)
	}
	if !strings.Contains(view, "1 unread") {
		t.Errorf("failed mark changed the unread count:\n%s", view)
	}

	// The next poll retries the mark.
	marker.err = nil
	_, command = update(t, model, openSnapshot())
	if command == nil {
		t.Error("failed mark was not retried on the next poll")
	}
}

func TestModelFitsWindow(t *testing.T) {
	model := NewModel("bob", &fakeFollower{}, nil)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 32, Height: 16})
	model, _ = update(t, model, openSnapshot())

	for i, line := range strings.Split(model.View(), "\n") {
		if width := ansi.StringWidth(line); width > 32 {
			t.Errorf("line %d is %d cells wide, want at most 32: %q", i, width, ansi.Strip(line))
		}
	}
}

func TestModelQuit(t *testing.T) {
	model := NewModel("bob", &fakeFollower{}, nil)

	_, command := model.Update(keyRunes('q'))
	if command == nil {
		t.Fatal("q key should return a command")
	}
	if _, isQuit := command().(tea.QuitMsg); !isQuit {
		t.Errorf("expected QuitMsg, got %T", command())
	}
}
