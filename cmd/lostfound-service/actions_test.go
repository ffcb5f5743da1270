// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/service"
)

func registerItemOverSocket(t *testing.T, client *service.Client, title string) message.Item {
	t.Helper()
	var item message.Item
	err := client.Call(context.Background(), message.ActionRegisterItem, map[string]any{"title": title}, &item)
	if err != nil {
		t.Fatalf("register_item: %v", err)
	}
	return item
}

func sendOverSocket(t *testing.T, client *service.Client, receiver string, itemID int64, content string) message.Message {
	t.Helper()
	var sent message.Message
	err := client.Call(context.Background(), message.ActionSend, map[string]any{
		"receiver_username": receiver,
		"item_id":           itemID,
		"content":           content,
	}, &sent)
	if err != nil {
		t.Fatalf("send as %s: %v", client.User(), err)
	}
	return sent
}

func unreadOverSocket(t *testing.T, client *service.Client) int {
	t.Helper()
	var count message.CountResponse
	if err := client.Call(context.Background(), message.ActionUnreadCount, nil, &count); err != nil {
		t.Fatalf("unread_count as %s: %v", client.User(), err)
	}
	return count.Count
}

func TestSocketConversationFlow(t *testing.T) {
	lostfound, _ := newTestService(t)
	socketPath := serveSocket(t, lostfound)
	ctx := context.Background()

	alice := service.NewClient(socketPath, "alice")
	bob := service.NewClient(socketPath, "bob")

	wallet := registerItemOverSocket(t, bob, "brown leather wallet")
	sent := sendOverSocket(t, alice, "bob", wallet.ID, "I found your wallet")
	if sent.Sender != "alice" || sent.IsRead {
		t.Fatalf("sent = %+v, want unread message from alice", sent)
	}

	if count := unreadOverSocket(t, bob); count != 1 {
		t.Fatalf("bob unread = %d, want 1", count)
	}

	var received message.MessagesResponse
	if err := bob.Call(ctx, message.ActionReceived, nil, &received); err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(received.Messages) != 1 || received.Messages[0].ID != sent.ID {
		t.Fatalf("received = %+v, want [%d]", received.Messages, sent.ID)
	}
	// Fetching does not mark read.
	if count := unreadOverSocket(t, bob); count != 1 {
		t.Fatalf("bob unread after fetch = %d, want 1", count)
	}

	var read message.Message
	if err := bob.Call(ctx, message.ActionMarkRead, map[string]any{"message_id": sent.ID}, &read); err != nil {
		t.Fatalf("mark_read: %v", err)
	}
	if !read.IsRead || read.ReadAt == nil {
		t.Fatalf("mark_read = %+v, want read with read_at", read)
	}
	if count := unreadOverSocket(t, bob); count != 0 {
		t.Fatalf("bob unread after read = %d, want 0", count)
	}

	var thread message.MessagesResponse
	err := alice.Call(ctx, message.ActionConversation, map[string]any{"item_id": wallet.ID}, &thread)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(thread.Messages) != 1 || !thread.Messages[0].IsRead {
		t.Fatalf("alice thread = %+v, want one read message", thread.Messages)
	}

	var conversations message.ConversationsResponse
	if err := alice.Call(ctx, message.ActionConversations, nil, &conversations); err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(conversations.Conversations) != 1 || conversations.Conversations[0].OtherParticipant != "bob" {
		t.Fatalf("conversations = %+v, want one thread with bob", conversations.Conversations)
	}
}

func TestSocketMarkReadByOtherUser(t *testing.T) {
	lostfound, _ := newTestService(t)
	socketPath := serveSocket(t, lostfound)

	bob := service.NewClient(socketPath, "bob")
	alice := service.NewClient(socketPath, "alice")
	carol := service.NewClient(socketPath, "carol")

	wallet := registerItemOverSocket(t, bob, "wallet")
	sent := sendOverSocket(t, alice, "bob", wallet.ID, "found it")

	err := carol.Call(context.Background(), message.ActionMarkRead, map[string]any{"message_id": sent.ID}, nil)
	if !failure.Is(err, failure.KindAuthorization) {
		t.Fatalf("carol mark_read error = %v, want authorization", err)
	}
	err = bob.Call(context.Background(), message.ActionMarkRead, map[string]any{"message_id": 9999}, nil)
	if !failure.Is(err, failure.KindNotFound) {
		t.Fatalf("unknown mark_read error = %v, want not_found", err)
	}
	if count := unreadOverSocket(t, bob); count != 1 {
		t.Fatalf("bob unread = %d, want 1", count)
	}
}

func TestSocketClaimGatesNewContact(t *testing.T) {
	lostfound, _ := newTestService(t)
	socketPath := serveSocket(t, lostfound)
	ctx := context.Background()

	alice := service.NewClient(socketPath, "alice")
	bob := service.NewClient(socketPath, "bob")
	carol := service.NewClient(socketPath, "carol")

	wallet := registerItemOverSocket(t, bob, "wallet")
	sendOverSocket(t, alice, "bob", wallet.ID, "is this yours?")

	var state message.ItemStateResponse
	if err := alice.Call(ctx, message.ActionClaim, map[string]any{"item_id": wallet.ID}, &state); !failure.Is(err, failure.KindAuthorization) {
		t.Fatalf("alice claim error = %v, want authorization", err)
	}
	if err := bob.Call(ctx, message.ActionClaim, map[string]any{"item_id": wallet.ID}, &state); err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	if state.State != message.StateClaimed || state.Item.ClaimedBy != "bob" {
		t.Fatalf("claim state = %+v, want claimed by bob", state)
	}

	err := carol.Call(ctx, message.ActionSend, map[string]any{
		"receiver_username": "bob",
		"item_id":           wallet.ID,
		"content":           "mine?",
	}, nil)
	if !failure.Is(err, failure.KindAuthorization) {
		t.Fatalf("carol send after claim error = %v, want authorization", err)
	}

	// Existing conversations continue in both directions.
	sendOverSocket(t, alice, "bob", wallet.ID, "great, glad it's back")
	sendOverSocket(t, bob, "alice", wallet.ID, "thanks again")

	var carolView message.ItemStateResponse
	if err := carol.Call(ctx, message.ActionItem, map[string]any{"item_id": wallet.ID}, &carolView); err != nil {
		t.Fatalf("item as carol: %v", err)
	}
	if carolView.Affordances.CanContact {
		t.Fatal("carol can contact a claimed item")
	}

	state = message.ItemStateResponse{}
	if err := bob.Call(ctx, message.ActionUnclaim, map[string]any{"item_id": wallet.ID}, &state); err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if state.State != message.StateOpen || state.Item.ClaimedAt != nil {
		t.Fatalf("unclaim state = %+v, want open without claimed_at", state)
	}
	sendOverSocket(t, carol, "bob", wallet.ID, "mine?")
}

func TestSocketTypingPresence(t *testing.T) {
	lostfound, fakeClock := newTestService(t)
	socketPath := serveSocket(t, lostfound)
	ctx := context.Background()

	alice := service.NewClient(socketPath, "alice")
	bob := service.NewClient(socketPath, "bob")
	wallet := registerItemOverSocket(t, bob, "wallet")

	if err := alice.Call(ctx, message.ActionTyping, map[string]any{"item_id": wallet.ID}, nil); err != nil {
		t.Fatalf("typing: %v", err)
	}

	isTyping := func() bool {
		t.Helper()
		var response message.TypingResponse
		err := bob.Call(ctx, message.ActionIsTyping, map[string]any{"item_id": wallet.ID, "username": "alice"}, &response)
		if err != nil {
			t.Fatalf("is_typing: %v", err)
		}
		return response.IsTyping
	}

	if !isTyping() {
		t.Fatal("alice not typing right after signal")
	}
	fakeClock.Advance(1500 * time.Millisecond)
	if !isTyping() {
		t.Fatal("alice not typing 1.5s after signal")
	}
	fakeClock.Advance(500 * time.Millisecond)
	if isTyping() {
		t.Fatal("alice still typing 2s after signal")
	}
}

func TestSocketAuthentication(t *testing.T) {
	lostfound, _ := newTestService(t)
	socketPath := serveSocket(t, lostfound)
	ctx := context.Background()

	anonymous := service.NewClient(socketPath, "")

	var status message.StatusResponse
	if err := anonymous.Call(ctx, message.ActionStatus, nil, &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PollInterval != "3s" {
		t.Errorf("poll_interval = %q, want 3s", status.PollInterval)
	}

	err := anonymous.Call(ctx, message.ActionReceived, nil, nil)
	if !failure.Is(err, failure.KindAuthorization) {
		t.Fatalf("anonymous received error = %v, want authorization", err)
	}

	if err := anonymous.Call(ctx, message.ActionRegisterUser, map[string]any{"username": "dave"}, nil); err != nil {
		t.Fatalf("register_user: %v", err)
	}
	dave := service.NewClient(socketPath, "dave")
	if count := unreadOverSocket(t, dave); count != 0 {
		t.Fatalf("dave unread = %d, want 0", count)
	}
}

func TestSocketInvalidRequest(t *testing.T) {
	lostfound, _ := newTestService(t)
	socketPath := serveSocket(t, lostfound)

	alice := service.NewClient(socketPath, "alice")
	err := alice.Call(context.Background(), message.ActionSend, map[string]any{"item_id": "not a number"}, nil)
	if !failure.Is(err, failure.KindValidation) {
		t.Fatalf("send with bad item_id error = %v, want validation", err)
	}
}
