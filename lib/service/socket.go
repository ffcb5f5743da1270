// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/lostfound/lib/codec"
	"github.com/bureau-foundation/lostfound/lib/failure"
)

// ActionFunc processes a socket request for one action. user is the
// caller's username from the request envelope (empty if absent). raw
// is the full CBOR request; handlers decode their own fields from it.
//
// A nil result produces {ok: true}; anything else is marshaled into
// the response's data field.
type ActionFunc func(ctx context.Context, user string, raw []byte) (any, error)

// Response is the wire envelope for every socket response.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Kind  failure.Kind     `cbor:"kind,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServer serves the CBOR protocol on a Unix socket. Each
// connection carries exactly one request and one response.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     *slog.Logger

	// ready is closed once the listener is bound.
	ready chan struct{}

	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
// Register actions with Handle before calling Serve.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Handle registers a handler for action. Panics on a duplicate.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Ready returns a channel closed once the socket is accepting
// connections.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests to finish. A stale socket file is removed before
// listening, and the socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second

	// maxRequestSize bounds one CBOR request.
	maxRequestSize = 256 * 1024
)

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, failure.Validation("", "invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
		User   string `cbor:"user"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		if diagnostic, diagErr := codec.Diagnose(raw); diagErr == nil {
			s.logger.Debug("undecodable request", "request", diagnostic)
		}
		s.writeError(conn, failure.Validation("", "invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, failure.Validation("", "missing required field: action"))
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, failure.Validation(header.Action, "unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, header.User, []byte(raw))
	if err != nil {
		if failure.KindOf(err) == failure.KindInternal {
			s.logger.Error("action failed", "action", header.Action, "user", header.User, "error", err)
		} else {
			s.logger.Debug("action rejected", "action", header.Action, "user", header.User, "error", err)
		}
		s.writeError(conn, err)
		return
	}

	s.writeSuccess(conn, result)
}

// writeError sends {ok: false, error, kind}. Write failures are logged
// at debug; the connection is closing regardless.
func (s *SocketServer) writeError(conn net.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if encodeErr := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: failure.MessageOf(err),
		Kind:  failure.KindOf(err),
	}); encodeErr != nil {
		s.logger.Debug("failed to write error response", "error", encodeErr)
	}
}

// writeSuccess sends {ok: true} with result, if any, in data.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.logger.Error("marshaling response", "error", err)
			s.writeError(conn, fmt.Errorf("marshaling response: %w", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
