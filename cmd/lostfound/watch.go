// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lostfound/cmd/lostfound/cli"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/service"
	"github.com/bureau-foundation/lostfound/lib/syncpoll"
	"github.com/bureau-foundation/lostfound/lib/watchui"
)

// socketSource is a syncpoll.Source backed by the service socket.
type socketSource struct {
	client *service.Client
}

func (s *socketSource) Conversations(ctx context.Context) ([]message.ConversationSummary, error) {
	var response message.ConversationsResponse
	if err := s.client.Call(ctx, message.ActionConversations, nil, &response); err != nil {
		return nil, err
	}
	return response.Conversations, nil
}

func (s *socketSource) UnreadCount(ctx context.Context) (int, error) {
	var response message.CountResponse
	if err := s.client.Call(ctx, message.ActionUnreadCount, nil, &response); err != nil {
		return 0, err
	}
	return response.Count, nil
}

func (s *socketSource) Conversation(ctx context.Context, itemID int64, with string) ([]message.Message, error) {
	var response message.MessagesResponse
	err := s.client.Call(ctx, message.ActionConversation, map[string]any{
		"item_id": itemID,
		"with":    with,
	}, &response)
	if err != nil {
		return nil, err
	}
	return response.Messages, nil
}

func (s *socketSource) IsTyping(ctx context.Context, itemID int64, username string) (bool, error) {
	var response message.TypingResponse
	err := s.client.Call(ctx, message.ActionIsTyping, map[string]any{
		"item_id":  itemID,
		"username": username,
	}, &response)
	if err != nil {
		return false, err
	}
	return response.IsTyping, nil
}

// socketMarker marks messages read through the service socket.
type socketMarker struct {
	client *service.Client
}

func (m *socketMarker) MarkRead(ctx context.Context, messageID int64) error {
	return m.client.Call(ctx, message.ActionMarkRead, map[string]any{"message_id": messageID}, nil)
}

type watchParams struct {
	cli.Connection
	Item     int64         `flag:"item,i" desc:"also follow the conversation about this item"`
	With     string        `flag:"with,w" desc:"counterpart in the followed conversation"`
	Interval time.Duration `flag:"interval" desc:"poll interval" default:"3s"`
}

func (a *app) watchCommand() *cli.Command {
	var params watchParams
	return &cli.Command{
		Name:    "watch",
		Summary: "Follow conversations and unread count until interrupted",
		Description: `Follow your conversation list and unread count, refreshed on every
poll. With --item, also follow that conversation and show when the
other participant is typing.

On a terminal this opens an interactive viewer: j/k move through the
conversation list, enter follows the selected conversation, tab moves
to the next one and follows it, esc stops following, q quits. Messages
to you in the followed conversation are marked read as they are shown;
the conversation list alone never marks anything read.

When output is not a terminal, each poll is appended as plain text and
nothing is marked read.`,
		Examples: []cli.Example{
			{
				Description: "Follow the thread about item 3",
				Command:     "lostfound watch --item 3",
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("watch", &params) },
		Run: func(ctx context.Context, args []string) error {
			client, err := params.Client()
			if err != nil {
				return err
			}
			_, interactive := terminalFile(a.out)

			logger := a.logger
			if interactive {
				// Fetch failures are shown in the viewer; log lines on
				// stderr would tear the alternate screen.
				logger = slog.New(slog.DiscardHandler)
			}
			poller := syncpoll.New(syncpoll.Config{
				Source:   &socketSource{client: client},
				Username: client.User(),
				Interval: params.Interval,
				Clock:    a.clockOrReal(),
				Logger:   logger,
			})
			if params.Item > 0 {
				poller.Open(params.Item, params.With)
			}

			if interactive {
				return a.watchInteractive(ctx, client, poller)
			}
			render := newRenderer(a.out)
			err = poller.Run(ctx, func(snapshot syncpoll.Snapshot) {
				render.snapshot(client.User(), snapshot)
				fmt.Fprintln(a.out)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// watchInteractive runs the full-screen viewer. The poller feeds it
// from a separate goroutine until the viewer exits or ctx ends.
func (a *app) watchInteractive(ctx context.Context, client *service.Client, poller *syncpoll.Poller) error {
	model := watchui.NewModel(client.User(), poller, &socketMarker{client: client})
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(a.out),
	)

	pollCtx, cancel := context.WithCancel(ctx)
	polling := make(chan struct{})
	go func() {
		defer close(polling)
		poller.Run(pollCtx, func(snapshot syncpoll.Snapshot) {
			program.Send(snapshot)
		})
	}()

	_, err := program.Run()
	cancel()
	<-polling
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
