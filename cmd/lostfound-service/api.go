// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"strconv"

	"github.com/bureau-foundation/lostfound/lib/codec"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/service"
)

// errorResponse is the JSON body of every failed HTTP request.
type errorResponse struct {
	Error     string       `json:"error"`
	Kind      failure.Kind `json:"kind"`
	RequestID string       `json:"request_id,omitempty"`
}

// httpHandler routes the JSON API.
func (s *LostfoundService) httpHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.apiStatus)

	mux.HandleFunc("POST /api/messages", s.apiSend)
	mux.HandleFunc("GET /api/messages/received", s.apiReceived)
	mux.HandleFunc("GET /api/messages/sent", s.apiSent)
	mux.HandleFunc("GET /api/messages/unread", s.apiUnread)
	mux.HandleFunc("GET /api/messages/unread/count", s.apiUnreadCount)
	mux.HandleFunc("GET /api/messages/conversations", s.apiConversations)
	mux.HandleFunc("GET /api/messages/item/{itemId}", s.apiConversation)
	mux.HandleFunc("PUT /api/messages/{id}/read", s.apiMarkRead)
	mux.HandleFunc("PUT /api/messages/read-all", s.apiMarkAllRead)
	mux.HandleFunc("POST /api/messages/typing", s.apiTyping)
	mux.HandleFunc("GET /api/messages/typing/{itemId}/{username}", s.apiIsTyping)

	mux.HandleFunc("POST /api/items", s.apiRegisterItem)
	mux.HandleFunc("GET /api/items/{id}", s.apiItem)
	mux.HandleFunc("PUT /api/items/{id}/claim", s.apiClaim)
	mux.HandleFunc("PUT /api/items/{id}/unclaim", s.apiUnclaim)

	mux.HandleFunc("POST /api/users", s.apiRegisterUser)

	return mux
}

func requestUser(r *http.Request) string {
	return r.Header.Get(service.UserHeader)
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, failure.Validation(name, "%q is not a valid id", raw)
	}
	return id, nil
}

func (s *LostfoundService) writeResult(w http.ResponseWriter, r *http.Request, status int, result any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := codec.WriteJSON(w, status, result); err != nil {
		s.logger.Debug("failed to write http response", "path", r.URL.Path, "error", err)
	}
}

func (s *LostfoundService) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := failure.KindOf(err)
	if kind == failure.KindInternal {
		s.logger.Error("request failed",
			"request_id", service.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	body := errorResponse{
		Error:     failure.MessageOf(err),
		Kind:      kind,
		RequestID: service.RequestID(r.Context()),
	}
	if writeErr := codec.WriteJSON(w, failure.HTTPStatus(err), body); writeErr != nil {
		s.logger.Debug("failed to write http error", "path", r.URL.Path, "error", writeErr)
	}
}

func decodeBody(r *http.Request, op string, v any) error {
	if err := codec.DecodeJSONBody(r, v); err != nil {
		return failure.Validation(op, "%v", err)
	}
	return nil
}

func (s *LostfoundService) apiStatus(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, http.StatusOK, s.status(), nil)
}

func (s *LostfoundService) apiSend(w http.ResponseWriter, r *http.Request) {
	var request message.SendRequest
	if err := decodeBody(r, message.ActionSend, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	sent, err := s.engine.Send(r.Context(), requestUser(r), request)
	s.writeResult(w, r, http.StatusCreated, sent, err)
}

func (s *LostfoundService) apiReceived(w http.ResponseWriter, r *http.Request) {
	messages, err := s.engine.Received(r.Context(), requestUser(r))
	s.writeResult(w, r, http.StatusOK, message.MessagesResponse{Messages: messages}, err)
}

func (s *LostfoundService) apiSent(w http.ResponseWriter, r *http.Request) {
	messages, err := s.engine.Sent(r.Context(), requestUser(r))
	s.writeResult(w, r, http.StatusOK, message.MessagesResponse{Messages: messages}, err)
}

func (s *LostfoundService) apiUnread(w http.ResponseWriter, r *http.Request) {
	messages, err := s.engine.Unread(r.Context(), requestUser(r))
	s.writeResult(w, r, http.StatusOK, message.MessagesResponse{Messages: messages}, err)
}

func (s *LostfoundService) apiUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.UnreadCount(r.Context(), requestUser(r))
	s.writeResult(w, r, http.StatusOK, message.CountResponse{Count: count}, err)
}

func (s *LostfoundService) apiConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.engine.Conversations(r.Context(), requestUser(r))
	s.writeResult(w, r, http.StatusOK, message.ConversationsResponse{Conversations: summaries}, err)
}

func (s *LostfoundService) apiConversation(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	request := message.ConversationRequest{ItemID: itemID, With: r.URL.Query().Get("with")}
	messages, err := s.engine.Conversation(r.Context(), requestUser(r), request)
	s.writeResult(w, r, http.StatusOK, message.MessagesResponse{Messages: messages}, err)
}

func (s *LostfoundService) apiMarkRead(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	read, err := s.engine.MarkRead(r.Context(), requestUser(r), messageID)
	s.writeResult(w, r, http.StatusOK, read, err)
}

func (s *LostfoundService) apiMarkAllRead(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.MarkAllRead(r.Context(), requestUser(r))
	s.writeResult(w, r, http.StatusOK, message.CountResponse{Count: count}, err)
}

func (s *LostfoundService) apiTyping(w http.ResponseWriter, r *http.Request) {
	var request message.ItemIDRequest
	if err := decodeBody(r, message.ActionTyping, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.engine.SignalTyping(r.Context(), requestUser(r), request.ItemID)
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

func (s *LostfoundService) apiIsTyping(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	request := message.IsTypingRequest{ItemID: itemID, Username: r.PathValue("username")}
	typing, err := s.engine.IsTyping(r.Context(), requestUser(r), request)
	s.writeResult(w, r, http.StatusOK, message.TypingResponse{IsTyping: typing}, err)
}

func (s *LostfoundService) apiRegisterItem(w http.ResponseWriter, r *http.Request) {
	var request message.RegisterItemRequest
	if err := decodeBody(r, message.ActionRegisterItem, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.engine.RegisterItem(r.Context(), requestUser(r), request)
	s.writeResult(w, r, http.StatusCreated, item, err)
}

func (s *LostfoundService) apiItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.engine.Item(r.Context(), requestUser(r), itemID)
	s.writeResult(w, r, http.StatusOK, state, err)
}

func (s *LostfoundService) apiClaim(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.engine.Claim(r.Context(), requestUser(r), itemID)
	s.writeResult(w, r, http.StatusOK, state, err)
}

func (s *LostfoundService) apiUnclaim(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.engine.Unclaim(r.Context(), requestUser(r), itemID)
	s.writeResult(w, r, http.StatusOK, state, err)
}

func (s *LostfoundService) apiRegisterUser(w http.ResponseWriter, r *http.Request) {
	var request message.RegisterUserRequest
	if err := decodeBody(r, message.ActionRegisterUser, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.engine.RegisterUser(r.Context(), request.Username)
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}
