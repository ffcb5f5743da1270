// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/bureau-foundation/lostfound/lib/codec"
	"github.com/bureau-foundation/lostfound/lib/failure"
)

const (
	dialTimeout = 5 * time.Second

	// responseReadTimeout covers the server's read and write timeouts
	// plus handler time.
	responseReadTimeout = 45 * time.Second

	maxResponseSize = 4 * 1024 * 1024
)

// Client sends CBOR requests to the service socket as one user. Each
// Call opens a new connection.
type Client struct {
	socketPath string
	user       string
}

// NewClient returns a client that identifies as user. An empty user
// sends anonymous requests (status, item lookups).
func NewClient(socketPath, user string) *Client {
	return &Client{socketPath: socketPath, user: user}
}

// User returns the username the client sends.
func (c *Client) User() string { return c.user }

// Call sends action with fields and decodes the response data into
// result (if non-nil). fields must not contain "action" or "user".
//
// When the server answers ok=false, Call returns a *failure.Error with
// the server's kind and message, so failure.Is works across the
// socket. Connection and decoding problems are returned as plain
// errors.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+2)
	maps.Copy(request, fields)
	request["action"] = action
	if c.user != "" {
		request["user"] = c.user
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		kind := response.Kind
		if kind == "" {
			kind = failure.KindInternal
		}
		return failure.New(kind, action, response.Error)
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(responseReadTimeout))
	// Unblock the read if ctx is cancelled mid-call.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
