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
	receivedAction = message.ActionReceived
	sentAction     = message.ActionSent
	unreadAction   = message.ActionUnread
)

type sendParams struct {
	cli.Connection
	cli.JSONOutput
	Item int64  `flag:"item,i" desc:"item the message is about"`
	To   string `flag:"to,t" desc:"receiving user"`
}

func (a *app) sendCommand() *cli.Command {
	var params sendParams
	return &cli.Command{
		Name:    "send",
		Summary: "Send a message about an item",
		Usage:   "lostfound send --item <id> --to <user> <message...>",
		Examples: []cli.Example{
			{
				Description: "Tell bob you found his wallet",
				Command:     `lostfound send --item 3 --to bob "I found your wallet at the library"`,
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("send", &params) },
		Run: func(ctx context.Context, args []string) error {
			if params.Item <= 0 || params.To == "" || len(args) == 0 {
				return fmt.Errorf("usage: lostfound send --item <id> --to <user> <message...>")
			}
			client, err := params.Client()
			if err != nil {
				return err
			}
			var sent message.Message
			err = client.Call(ctx, message.ActionSend, map[string]any{
				"receiver_username": params.To,
				"item_id":           params.Item,
				"content":           strings.Join(args, " "),
			}, &sent)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, sent); done {
				return err
			}
			fmt.Fprintf(a.out, "sent #%d to %s\n", sent.ID, sent.Receiver)
			return nil
		},
	}
}

type listParams struct {
	cli.Connection
	cli.JSONOutput
}

// listCommand builds a command printing the message list one action
// returns.
func (a *app) listCommand(name, summary, action, empty string) *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams(name, &params) },
		Run: func(ctx context.Context, args []string) error {
			client, err := params.Client()
			if err != nil {
				return err
			}
			var response message.MessagesResponse
			if err := client.Call(ctx, action, nil, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, response.Messages); done {
				return err
			}
			newRenderer(a.out).messages(client.User(), response.Messages, empty)
			return nil
		},
	}
}

func (a *app) countCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "count",
		Summary: "Print your unread message count",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("count", &params) },
		Run: func(ctx context.Context, args []string) error {
			client, err := params.Client()
			if err != nil {
				return err
			}
			var response message.CountResponse
			if err := client.Call(ctx, message.ActionUnreadCount, nil, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, response); done {
				return err
			}
			fmt.Fprintln(a.out, response.Count)
			return nil
		},
	}
}

func (a *app) conversationsCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "conversations",
		Summary: "List your conversations, most recently active first",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("conversations", &params) },
		Run: func(ctx context.Context, args []string) error {
			client, err := params.Client()
			if err != nil {
				return err
			}
			var response message.ConversationsResponse
			if err := client.Call(ctx, message.ActionConversations, nil, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, response.Conversations); done {
				return err
			}
			newRenderer(a.out).conversations(client.User(), response.Conversations)
			return nil
		},
	}
}

type threadParams struct {
	cli.Connection
	cli.JSONOutput
	With string `flag:"with,w" desc:"counterpart, when you have several threads on the item"`
}

func (a *app) threadCommand() *cli.Command {
	var params threadParams
	const usage = "lostfound thread <item-id> [--with <user>]"
	return &cli.Command{
		Name:    "thread",
		Summary: "Show the messages of one conversation, oldest first",
		Usage:   usage,
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("thread", &params) },
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
			var response message.MessagesResponse
			err = client.Call(ctx, message.ActionConversation, map[string]any{
				"item_id": itemID,
				"with":    params.With,
			}, &response)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, response.Messages); done {
				return err
			}
			newRenderer(a.out).thread(client.User(), itemID, params.With, response.Messages, false)
			return nil
		},
	}
}

func (a *app) readCommand() *cli.Command {
	var params listParams
	const usage = "lostfound read <message-id>..."
	return &cli.Command{
		Name:    "read",
		Summary: "Mark messages addressed to you as read",
		Usage:   usage,
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("read", &params) },
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: %s", usage)
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID("message id", arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			client, err := params.Client()
			if err != nil {
				return err
			}

			read := make([]message.Message, 0, len(ids))
			for _, id := range ids {
				var updated message.Message
				if err := client.Call(ctx, message.ActionMarkRead, map[string]any{"message_id": id}, &updated); err != nil {
					return fmt.Errorf("message %d: %w", id, err)
				}
				read = append(read, updated)
			}
			if done, err := params.EmitJSON(a.out, read); done {
				return err
			}
			for _, updated := range read {
				fmt.Fprintf(a.out, "#%d read at %s\n", updated.ID, formatTime(*updated.ReadAt))
			}
			return nil
		},
	}
}

func (a *app) readAllCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "read-all",
		Summary: "Mark every message addressed to you as read",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("read-all", &params) },
		Run: func(ctx context.Context, args []string) error {
			client, err := params.Client()
			if err != nil {
				return err
			}
			var response message.CountResponse
			if err := client.Call(ctx, message.ActionMarkAllRead, nil, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.out, response); done {
				return err
			}
			fmt.Fprintf(a.out, "marked %d messages read\n", response.Count)
			return nil
		},
	}
}
