// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchui is the terminal viewer behind "lostfound watch".
// Built on bubbletea, it renders the snapshots a [syncpoll.Poller]
// delivers and turns key presses into poller and read-marker calls.
// The poller runs on its own goroutine and feeds the [Model] through
// program.Send, so the event loop never blocks on the network.
//
// Data flow:
//
//	[lostfound service]
//	        | (syncpoll.Poller, every poll interval)
//	    [Model] <- bubbletea event loop
//	        |
//	  [terminal output]
//
// Opening a conversation is the explicit client action that reads it:
// while a thread is open, unread messages addressed to the viewer are
// marked read as they are displayed. The conversation list alone never
// marks anything read.
package watchui
