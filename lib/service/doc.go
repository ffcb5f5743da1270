// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the transport scaffolding shared by the
// lostfound service and its CLI:
//
//   - Socket server: a CBOR request-response protocol on a Unix socket,
//     one request per connection, with action dispatch, connection
//     timeouts, and graceful shutdown.
//   - Socket client: the matching one-shot caller, which rebuilds
//     typed failures from the response envelope.
//   - HTTP server: TCP listener lifecycle with readiness signaling and
//     graceful shutdown, plus request-ID logging middleware.
//
// The service composes these in its own main() rather than through a
// framework.
//
// # Identity
//
// Authentication happens upstream. Socket requests carry the caller's
// username in the "user" field; HTTP requests carry it in the
// X-Lostfound-User header set by the authenticating proxy. Both are
// trusted as given.
//
// # Envelope
//
// Every socket response is {ok, error, kind, data}. On failure, kind
// is the failure.Kind of the handler's error and error is its
// caller-safe message; unclassified errors are reported as
// "internal error" and logged in full on the server.
package service
