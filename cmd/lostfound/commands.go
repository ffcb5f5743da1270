// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/bureau-foundation/lostfound/cmd/lostfound/cli"
	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/version"
)

// app carries the dependencies shared by every command.
type app struct {
	out    io.Writer
	logger *slog.Logger

	// clock drives watch; nil means the real clock.
	clock clock.Clock
}

func (a *app) clockOrReal() clock.Clock {
	if a.clock == nil {
		return clock.Real()
	}
	return a.clock
}

// root builds the complete command tree.
func (a *app) root() *cli.Command {
	return &cli.Command{
		Name: "lostfound",
		Description: `lostfound: campus lost-and-found messaging.

Message the people who found or lost an item, follow conversations,
and claim items once they are returned.`,
		Subcommands: []*cli.Command{
			a.sendCommand(),
			a.listCommand("inbox", "List messages you received, newest first", receivedAction, "no messages received"),
			a.listCommand("sent", "List messages you sent, newest first", sentAction, "no messages sent"),
			a.listCommand("unread", "List unread messages addressed to you", unreadAction, "no unread messages"),
			a.countCommand(),
			a.conversationsCommand(),
			a.threadCommand(),
			a.readCommand(),
			a.readAllCommand(),
			a.typingCommand(),
			a.isTypingCommand(),
			a.itemCommand(),
			a.claimCommand("claim", "Mark your item as returned to its owner", claimAction),
			a.claimCommand("unclaim", "Reopen your item", unclaimAction),
			a.userCommand(),
			a.watchCommand(),
			a.statusCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					version.Print(a.out, "lostfound")
					return nil
				},
			},
		},
	}
}

// parseID parses a positive integer id from a positional argument.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", what, arg)
	}
	return id, nil
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, count int, usage string) error {
	if len(args) != count {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
