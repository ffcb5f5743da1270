// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides lostfound's wire encodings.
//
// Two formats with a fixed boundary:
//
//   - CBOR for the service socket (lostfound CLI and co-located
//     tooling). Encoding uses Core Deterministic Encoding (RFC 8949
//     §4.2) so identical values produce identical bytes. Timestamps
//     are encoded as RFC 3339 strings with nanoseconds; the default
//     integer-seconds encoding would collapse the sentAt ordering of
//     messages sent within the same second.
//   - JSON for the HTTP API consumed by browser clients.
//
// Schema types carry `json` tags only. fxamacker/cbor falls back to
// `json` tags when no `cbor` tag is present, so one tag set names the
// fields in both formats. Types that never leave the socket (the
// request envelope) use `cbor` tags.
package codec
