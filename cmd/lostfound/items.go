// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lostfound/cmd/lostfound/cli"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

const (
	claimAction   = message.ActionClaim
	unclaimAction = message.ActionUnclaim
)

func (a *app) typingCommand() *cli.Command {
	var params listParams
	const usage = "lostfound typing <item-id>"
	return &cli.Command{
		Name:    "typing",
		Summary: "Signal that you are composing a message about an item",
		Usage:   usage,
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("typing", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, usage); err != nil {
				return err
			}
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			client, err := params.Client()
			if err != nil {
				return err
			}
			return client.Call(ctx, message.ActionTyping, map[string]any{"item_id": itemID}, nil)
		},
	}
}

func (a *app) isTypingCommand() *cli.Command {
	var params listParams
	const usage = "lostfound is-typing <item-id> <user>"
	return &cli.Command{
		Name:        "is-typing",
		Summary:     "Report whether a user is composing a message about an item",
		Description: "Report whether a user is composing a message about an item.\n\nExits 1 when the user is not typing.",
		Usage:       usage,
		Flags:       func() *pflag.FlagSet { return cli.FlagsFromParams("is-typing", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, usage); err != nil {
				return err
			}
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			client, err := params.Client()
			if err != nil {
				return err
			}
			var response message.TypingResponse
			err = client.Call(ctx, message.ActionIsTyping, map[string]any{
				"item_id":  itemID,
				"username": args[1],
			}, &response)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, response); done {
				return err
			}
			if !response.IsTyping {
				fmt.Fprintf(a.out, "%s is not typing\n", args[1])
				return &cli.ExitError{Code: 1}
			}
			fmt.Fprintf(a.out, "%s is typing\n", args[1])
			return nil
		},
	}
}

type itemParams struct {
	cli.Connection
	cli.JSONOutput
}

func (a *app) itemCommand() *cli.Command {
	var params itemParams
	const usage = "lostfound item <item-id>"
	return &cli.Command{
		Name:    "item",
		Summary: "Show an item's claim state and what you can do with it",
		Usage:   usage,
		Subcommands: []*cli.Command{
			a.itemCreateCommand(),
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("item", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, usage); err != nil {
				return err
			}
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			// Item lookups are allowed anonymously; affordances are
			// then all false.
			client := params.Anonymous()
			if params.User != "" {
				client, _ = params.Client()
			}
			var state message.ItemStateResponse
			if err := client.Call(ctx, message.ActionItem, map[string]any{"item_id": itemID}, &state); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, state); done {
				return err
			}
			newRenderer(a.out).itemState(client.User(), state)
			return nil
		},
	}
}

func (a *app) itemCreateCommand() *cli.Command {
	var params itemParams
	return &cli.Command{
		Name:    "create",
		Summary: "Register an item you found or lost",
		Usage:   "lostfound item create <title...>",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("item create", &params) },
		Run: func(ctx context.Context, args []string) error {
			client, err := params.Client()
			if err != nil {
				return err
			}
			var item message.Item
			err = client.Call(ctx, message.ActionRegisterItem, map[string]any{"title": strings.Join(args, " ")}, &item)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, item); done {
				return err
			}
			fmt.Fprintf(a.out, "registered item %d\n", item.ID)
			return nil
		},
	}
}

func (a *app) claimCommand(name, summary, action string) *cli.Command {
	var params itemParams
	usage := "lostfound " + name + " <item-id>"
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams(name, &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, usage); err != nil {
				return err
			}
			itemID, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			client, err := params.Client()
			if err != nil {
				return err
			}
			var state message.ItemStateResponse
			if err := client.Call(ctx, action, map[string]any{"item_id": itemID}, &state); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, state); done {
				return err
			}
			newRenderer(a.out).itemState(client.User(), state)
			return nil
		},
	}
}

func (a *app) userCommand() *cli.Command {
	var params listParams
	const usage = "lostfound user register <username>"
	return &cli.Command{
		Name:    "user",
		Summary: "Manage accounts",
		Subcommands: []*cli.Command{
			{
				Name:    "register",
				Summary: "Add an account to the directory",
				Usage:   usage,
				Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("user register", &params) },
				Run: func(ctx context.Context, args []string) error {
					if err := requireArgs(args, 1, usage); err != nil {
						return err
					}
					username := args[0]
					if err := message.ValidateUsername(username); err != nil {
						return err
					}
					if err := params.Anonymous().Call(ctx, message.ActionRegisterUser, map[string]any{"username": username}, nil); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "registered %s\n", username)
					return nil
				},
			},
		},
	}
}

func (a *app) statusCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "status",
		Summary: "Check that lostfound-service is running",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("status", &params) },
		Run: func(ctx context.Context, args []string) error {
			var status message.StatusResponse
			if err := params.Anonymous().Call(ctx, message.ActionStatus, nil, &status); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, status); done {
				return err
			}
			fmt.Fprintf(a.out, "lostfound-service up %.0fs, %d typing signals, poll every %s\n",
				status.UptimeSeconds, status.TypingSignals, status.PollInterval)
			return nil
		},
	}
}
