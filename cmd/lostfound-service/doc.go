// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Lostfound-service is the conversation synchronization service for the
// campus lost-and-found board. It stores direct messages about items,
// tracks who is typing, and gates new contact on an item's claim
// state. Clients poll; there is no push channel.
//
// # Startup
//
// Configuration is read from the file named by --config or
// LOSTFOUND_CONFIG. The service opens the SQLite message store, seeds
// demo users and items if configured, starts the typing tracker's
// background sweep, and serves two transports until SIGINT or SIGTERM.
//
// # Socket API
//
// A Unix socket speaks the one-request-per-connection CBOR protocol
// from lib/service. The caller's username travels in the "user" field.
// Actions: status, send, received, sent, conversation, conversations,
// mark_read, mark_all_read, unread, unread_count, typing, is_typing,
// claim, unclaim, item, register_user, register_item.
//
// # HTTP API
//
// The same operations are served as JSON under /api for the web
// client. The authenticating proxy in front of the service sets
// X-Lostfound-User. Failures map to 400 (validation), 403
// (authorization), 404 (not found), 503 (store unavailable), and 500.
package main
