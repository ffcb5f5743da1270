// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/bureau-foundation/lostfound/lib/codec"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/service"
)

// registerActions registers every socket action on server.
func (s *LostfoundService) registerActions(server *service.SocketServer) {
	// Unauthenticated liveness.
	server.Handle(message.ActionStatus, s.handleStatus)

	server.Handle(message.ActionSend, s.handleSend)
	server.Handle(message.ActionReceived, s.handleReceived)
	server.Handle(message.ActionSent, s.handleSent)
	server.Handle(message.ActionUnread, s.handleUnread)
	server.Handle(message.ActionConversation, s.handleConversation)
	server.Handle(message.ActionConversations, s.handleConversations)
	server.Handle(message.ActionMarkRead, s.handleMarkRead)
	server.Handle(message.ActionMarkAllRead, s.handleMarkAllRead)
	server.Handle(message.ActionUnreadCount, s.handleUnreadCount)
	server.Handle(message.ActionTyping, s.handleTyping)
	server.Handle(message.ActionIsTyping, s.handleIsTyping)
	server.Handle(message.ActionClaim, s.handleClaim)
	server.Handle(message.ActionUnclaim, s.handleUnclaim)
	server.Handle(message.ActionItem, s.handleItem)
	server.Handle(message.ActionRegisterUser, s.handleRegisterUser)
	server.Handle(message.ActionRegisterItem, s.handleRegisterItem)
}

// decodeRequest unmarshals the action-specific fields of raw.
func decodeRequest(action string, raw []byte, request any) error {
	if err := codec.Unmarshal(raw, request); err != nil {
		return failure.Validation(action, "invalid request: %v", err)
	}
	return nil
}

func (s *LostfoundService) status() message.StatusResponse {
	status := s.engine.Status()
	status.PollInterval = s.pollInterval.String()
	return status
}

func (s *LostfoundService) handleStatus(context.Context, string, []byte) (any, error) {
	return s.status(), nil
}

func (s *LostfoundService) handleSend(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.SendRequest
	if err := decodeRequest(message.ActionSend, raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Send(ctx, user, request)
}

func (s *LostfoundService) handleReceived(ctx context.Context, user string, _ []byte) (any, error) {
	messages, err := s.engine.Received(ctx, user)
	if err != nil {
		return nil, err
	}
	return message.MessagesResponse{Messages: messages}, nil
}

func (s *LostfoundService) handleSent(ctx context.Context, user string, _ []byte) (any, error) {
	messages, err := s.engine.Sent(ctx, user)
	if err != nil {
		return nil, err
	}
	return message.MessagesResponse{Messages: messages}, nil
}

func (s *LostfoundService) handleUnread(ctx context.Context, user string, _ []byte) (any, error) {
	messages, err := s.engine.Unread(ctx, user)
	if err != nil {
		return nil, err
	}
	return message.MessagesResponse{Messages: messages}, nil
}

func (s *LostfoundService) handleConversation(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.ConversationRequest
	if err := decodeRequest(message.ActionConversation, raw, &request); err != nil {
		return nil, err
	}
	messages, err := s.engine.Conversation(ctx, user, request)
	if err != nil {
		return nil, err
	}
	return message.MessagesResponse{Messages: messages}, nil
}

func (s *LostfoundService) handleConversations(ctx context.Context, user string, _ []byte) (any, error) {
	summaries, err := s.engine.Conversations(ctx, user)
	if err != nil {
		return nil, err
	}
	return message.ConversationsResponse{Conversations: summaries}, nil
}

func (s *LostfoundService) handleMarkRead(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.MessageIDRequest
	if err := decodeRequest(message.ActionMarkRead, raw, &request); err != nil {
		return nil, err
	}
	return s.engine.MarkRead(ctx, user, request.MessageID)
}

func (s *LostfoundService) handleMarkAllRead(ctx context.Context, user string, _ []byte) (any, error) {
	count, err := s.engine.MarkAllRead(ctx, user)
	if err != nil {
		return nil, err
	}
	return message.CountResponse{Count: count}, nil
}

func (s *LostfoundService) handleUnreadCount(ctx context.Context, user string, _ []byte) (any, error) {
	count, err := s.engine.UnreadCount(ctx, user)
	if err != nil {
		return nil, err
	}
	return message.CountResponse{Count: count}, nil
}

func (s *LostfoundService) handleTyping(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.ItemIDRequest
	if err := decodeRequest(message.ActionTyping, raw, &request); err != nil {
		return nil, err
	}
	return nil, s.engine.SignalTyping(ctx, user, request.ItemID)
}

func (s *LostfoundService) handleIsTyping(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.IsTypingRequest
	if err := decodeRequest(message.ActionIsTyping, raw, &request); err != nil {
		return nil, err
	}
	typing, err := s.engine.IsTyping(ctx, user, request)
	if err != nil {
		return nil, err
	}
	return message.TypingResponse{IsTyping: typing}, nil
}

func (s *LostfoundService) handleClaim(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.ItemIDRequest
	if err := decodeRequest(message.ActionClaim, raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Claim(ctx, user, request.ItemID)
}

func (s *LostfoundService) handleUnclaim(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.ItemIDRequest
	if err := decodeRequest(message.ActionUnclaim, raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Unclaim(ctx, user, request.ItemID)
}

func (s *LostfoundService) handleItem(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.ItemIDRequest
	if err := decodeRequest(message.ActionItem, raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Item(ctx, user, request.ItemID)
}

func (s *LostfoundService) handleRegisterUser(ctx context.Context, _ string, raw []byte) (any, error) {
	var request message.RegisterUserRequest
	if err := decodeRequest(message.ActionRegisterUser, raw, &request); err != nil {
		return nil, err
	}
	return nil, s.engine.RegisterUser(ctx, request.Username)
}

func (s *LostfoundService) handleRegisterItem(ctx context.Context, user string, raw []byte) (any, error) {
	var request message.RegisterItemRequest
	if err := decodeRequest(message.ActionRegisterItem, raw, &request); err != nil {
		return nil, err
	}
	return s.engine.RegisterItem(ctx, user, request)
}
