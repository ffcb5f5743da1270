// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Lostfound is the command-line client for lostfound-service. It talks
// to the service's unix socket as the user named by --user (or
// $LOSTFOUND_USER) and renders results with lipgloss, falling back to
// plain text when stdout is not a terminal. Every listing command
// accepts --json.
//
// "lostfound watch" follows the conversation list, the unread count
// and optionally one thread by polling at the service's 3-second
// cadence, redrawing the screen on each poll.
package main
