// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package message defines the lostfound wire schema: the Message and
// Item records, claim states, socket action names, and the request and
// response bodies shared by the service, its socket client, and the
// HTTP API. Every type uses `json` tags so it serializes identically
// over CBOR (socket) and JSON (HTTP).
package message
