// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/syncpoll"
)

const timeLayout = "Jan 02 15:04"

// renderer writes human-readable output. Styles degrade to plain text
// when out is not a terminal.
type renderer struct {
	out io.Writer

	// width bounds message content; 0 means unbounded.
	width int

	header lipgloss.Style
	dim    lipgloss.Style
	unread lipgloss.Style
	user   lipgloss.Style
	open   lipgloss.Style
	closed lipgloss.Style
	alert  lipgloss.Style
}

func newRenderer(out io.Writer) *renderer {
	styles := lipgloss.NewRenderer(out)
	r := &renderer{
		out:    out,
		header: styles.NewStyle().Bold(true).Underline(true),
		dim:    styles.NewStyle().Faint(true),
		unread: styles.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		user:   styles.NewStyle().Foreground(lipgloss.Color("6")),
		open:   styles.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		closed: styles.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		alert:  styles.NewStyle().Foreground(lipgloss.Color("1")),
	}
	if file, ok := terminalFile(out); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil {
			r.width = width
		}
	}
	return r
}

// terminalFile returns out as a file when it is attached to a terminal.
func terminalFile(out io.Writer) (*os.File, bool) {
	file, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nil, false
	}
	return file, true
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

// messageLine renders one message from the viewpoint of viewer. Unread
// messages addressed to viewer are marked with "*".
func (r *renderer) messageLine(viewer string, m message.Message) string {
	marker := " "
	if m.Receiver == viewer && !m.IsRead {
		marker = r.unread.Render("*")
	}
	prefix := fmt.Sprintf("%s %s  %s  %s -> %s  item %d  ",
		marker,
		r.dim.Render(fmt.Sprintf("#%-5d", m.ID)),
		r.dim.Render(formatTime(m.SentAt)),
		r.user.Render(m.Sender),
		r.user.Render(m.Receiver),
		m.ItemID,
	)
	content := strings.ReplaceAll(m.Content, "\n", " ")
	if r.width > 0 {
		if room := r.width - lipgloss.Width(prefix); room > 0 {
			content = lipgloss.NewStyle().MaxWidth(room).Render(content)
		}
	}
	return prefix + content
}

func (r *renderer) messages(viewer string, messages []message.Message, empty string) {
	if len(messages) == 0 {
		fmt.Fprintln(r.out, r.dim.Render(empty))
		return
	}
	for _, m := range messages {
		fmt.Fprintln(r.out, r.messageLine(viewer, m))
	}
}

func (r *renderer) conversations(viewer string, summaries []message.ConversationSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(r.out, r.dim.Render("no conversations"))
		return
	}
	for _, summary := range summaries {
		unread := r.dim.Render("        ")
		if summary.UnreadForUser > 0 {
			unread = r.unread.Render(fmt.Sprintf("%2d unread", summary.UnreadForUser))
		}
		latest := summary.LatestMessage
		who := "you"
		if latest.Sender != viewer {
			who = latest.Sender
		}
		fmt.Fprintf(r.out, "item %-4d %s  %s  %s  %s: %s\n",
			summary.ItemID,
			r.user.Render(fmt.Sprintf("%-12s", summary.OtherParticipant)),
			unread,
			r.dim.Render(formatTime(latest.SentAt)),
			who,
			strings.ReplaceAll(latest.Content, "\n", " "),
		)
	}
}

func (r *renderer) thread(viewer string, itemID int64, counterpart string, messages []message.Message, typing bool) {
	title := fmt.Sprintf("item %d", itemID)
	if counterpart != "" {
		title += " with " + counterpart
	}
	fmt.Fprintln(r.out, r.header.Render(title))
	r.messages(viewer, messages, "no messages yet")
	if typing {
		fmt.Fprintln(r.out, r.dim.Render(counterpart+" is typing..."))
	}
}

func (r *renderer) itemState(viewer string, state message.ItemStateResponse) {
	item := state.Item
	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	badge := r.open.Render(strings.ToUpper(string(state.State)))
	if state.State == message.StateClaimed {
		badge = r.closed.Render(strings.ToUpper(string(state.State)))
	}
	fmt.Fprintf(r.out, "%s  %s  %s\n", r.header.Render(fmt.Sprintf("item %d", item.ID)), title, badge)
	fmt.Fprintf(r.out, "  created by %s\n", r.user.Render(item.CreatedBy))
	if item.ClaimedAt != nil {
		fmt.Fprintf(r.out, "  claimed by %s at %s\n", r.user.Render(item.ClaimedBy), formatTime(*item.ClaimedAt))
	}

	var actions []string
	if state.Affordances.CanContact {
		actions = append(actions, "contact")
	}
	if state.Affordances.CanClaim {
		actions = append(actions, "claim")
	}
	if state.Affordances.CanUnclaim {
		actions = append(actions, "unclaim")
	}
	if len(actions) == 0 {
		actions = append(actions, "none")
	}
	fmt.Fprintf(r.out, "  you can: %s\n", strings.Join(actions, ", "))
	if len(state.Conversations) > 0 {
		fmt.Fprintln(r.out)
		r.conversations(viewer, state.Conversations)
	}
}

// snapshot draws one poll result. Used by watch when its output is not
// a terminal, where successive snapshots are appended.
func (r *renderer) snapshot(viewer string, snapshot syncpoll.Snapshot) {
	fmt.Fprintf(r.out, "%s  %s\n",
		r.header.Render("lostfound: "+viewer),
		r.dim.Render("updated "+snapshot.At.Local().Format(time.TimeOnly)),
	)
	if snapshot.Err != nil {
		fmt.Fprintln(r.out, r.alert.Render("sync error: "+snapshot.Err.Error()))
	}
	unread := fmt.Sprintf("%d unread", snapshot.UnreadCount)
	if snapshot.UnreadCount > 0 {
		unread = r.unread.Render(unread)
	}
	fmt.Fprintln(r.out, unread)
	fmt.Fprintln(r.out)
	r.conversations(viewer, snapshot.Conversations)
	if snapshot.Open {
		fmt.Fprintln(r.out)
		r.thread(viewer, snapshot.ItemID, snapshot.Counterpart, snapshot.Thread, snapshot.CounterpartTyping)
	}
}
