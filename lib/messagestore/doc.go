// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messagestore is the durable record of lostfound messages and
// the minimal user and item directory the conversation engine checks
// against.
//
// Messages are append-only. The only mutation after Send is the one-way
// read transition performed by the receiver, which sets ReadAt exactly
// once. Every write runs in a single IMMEDIATE transaction, so SQLite's
// writer lock gives per-key atomicity: two concurrent MarkRead calls on
// one message agree on a single ReadAt, and the later caller observes
// an already-read message.
//
// # Ordering
//
// SentAt is assigned by the store, never by the caller, and is
// monotonically non-decreasing across the whole store: a send computes
// max(now, latest stored SentAt) inside its transaction, so a clock
// step backwards cannot reorder a conversation. Ties are broken by ID,
// which SQLite assigns monotonically (AUTOINCREMENT). Chronological
// views (ListByItem, ListInvolving) order by (SentAt, ID) ascending;
// inbox views (ListReceived, ListSent, ListUnread) order by (SentAt, ID)
// descending.
//
// # Failures
//
// Input problems surface as failure.KindValidation, unknown IDs as
// failure.KindNotFound, and acting on another user's message as
// failure.KindAuthorization. Transient SQLite errors are retried once
// by the pool; a second failure surfaces as failure.KindUnavailable.
package messagestore
