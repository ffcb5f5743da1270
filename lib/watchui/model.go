// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/lostfound/lib/schema/message"
	"github.com/bureau-foundation/lostfound/lib/syncpoll"
)

// Follower chooses which conversation is polled alongside the
// conversation list. *syncpoll.Poller implements it.
type Follower interface {
	Open(itemID int64, with string)
	Close()
}

// ReadMarker marks one message read on behalf of the viewer.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID int64) error
}

// markTimeout bounds a single mark-read call.
const markTimeout = 5 * time.Second

// minThreadHeight is the fewest thread rows shown however short the
// terminal is.
const minThreadHeight = 3

const timeLayout = "Jan 02 15:04"

// markResultMsg reports the outcome of one mark-read call.
type markResultMsg struct {
	messageID int64
	err       error
}

// Model is the bubbletea model for the watch viewer. Poll results
// arrive as syncpoll.Snapshot messages.
type Model struct {
	viewer   string
	follower Follower
	marker   ReadMarker
	keys     KeyMap
	theme    Theme

	snapshot syncpoll.Snapshot
	received bool

	// cursor indexes snapshot.Conversations.
	cursor int

	// marking holds the IDs of messages with a mark-read call in
	// flight, so consecutive snapshots do not mark one twice.
	marking map[int64]bool
	markErr error

	width  int
	height int
	ready  bool
	thread viewport.Model
}

// NewModel returns a viewer for viewer's conversations. A nil marker
// disables marking read on view.
func NewModel(viewer string, follower Follower, marker ReadMarker) Model {
	return Model{
		viewer:   viewer,
		follower: follower,
		marker:   marker,
		keys:     DefaultKeyMap,
		theme:    DefaultTheme,
		marking:  make(map[int64]bool),
	}
}

// Init implements tea.Model. Snapshots are pushed by the caller, so
// there is nothing to start.
func (model Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return model.handleKey(msg)

	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.height = msg.Height
		model.ready = true
		model.layoutThread()
		model.refreshThread()

	case syncpoll.Snapshot:
		return model.applySnapshot(msg)

	case markResultMsg:
		delete(model.marking, msg.messageID)
		if msg.err != nil {
			model.markErr = msg.err
			return model, nil
		}
		model.markErr = nil
		model.noteRead(msg.messageID)
		model.refreshThread()
	}
	return model, nil
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	conversations := model.snapshot.Conversations
	switch {
	case key.Matches(msg, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(msg, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}

	case key.Matches(msg, model.keys.Down):
		if model.cursor < len(conversations)-1 {
			model.cursor++
		}

	case key.Matches(msg, model.keys.Open):
		model.follow()

	case key.Matches(msg, model.keys.Next):
		if len(conversations) > 0 {
			model.cursor = (model.cursor + 1) % len(conversations)
			model.follow()
		}

	case key.Matches(msg, model.keys.Close):
		if model.snapshot.Open {
			model.follower.Close()
			model.snapshot.Open = false
			model.snapshot.Thread = nil
			model.layoutThread()
			model.refreshThread()
		}

	case key.Matches(msg, model.keys.PageUp):
		model.thread.LineUp(max(model.thread.Height/2, 1))

	case key.Matches(msg, model.keys.PageDown):
		model.thread.LineDown(max(model.thread.Height/2, 1))
	}
	return model, nil
}

// follow asks the poller for the conversation under the cursor. The
// thread appears with the next snapshot.
func (model *Model) follow() {
	conversations := model.snapshot.Conversations
	if model.cursor < 0 || model.cursor >= len(conversations) {
		return
	}
	selected := conversations[model.cursor]
	model.follower.Open(selected.ItemID, selected.OtherParticipant)
}

func (model Model) applySnapshot(snapshot syncpoll.Snapshot) (tea.Model, tea.Cmd) {
	model.snapshot = snapshot
	model.received = true
	if model.cursor >= len(snapshot.Conversations) {
		model.cursor = max(len(snapshot.Conversations)-1, 0)
	}
	model.layoutThread()
	model.refreshThread()

	if !snapshot.Open || model.marker == nil {
		return model, nil
	}
	var commands []tea.Cmd
	for _, m := range snapshot.Thread {
		if m.Receiver != model.viewer || m.IsRead || model.marking[m.ID] {
			continue
		}
		model.marking[m.ID] = true
		commands = append(commands, model.markRead(m.ID))
	}
	return model, tea.Batch(commands...)
}

func (model Model) markRead(messageID int64) tea.Cmd {
	marker := model.marker
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
		defer cancel()
		return markResultMsg{messageID: messageID, err: marker.MarkRead(ctx, messageID)}
	}
}

// noteRead applies a successful mark locally so the counts drop before
// the next poll confirms them.
func (model *Model) noteRead(messageID int64) {
	for i := range model.snapshot.Thread {
		m := &model.snapshot.Thread[i]
		if m.ID != messageID || m.IsRead {
			continue
		}
		m.IsRead = true
		if model.snapshot.UnreadCount > 0 {
			model.snapshot.UnreadCount--
		}
		for j := range model.snapshot.Conversations {
			summary := &model.snapshot.Conversations[j]
			if summary.ItemID == m.ItemID && summary.OtherParticipant == m.Sender && summary.UnreadForUser > 0 {
				summary.UnreadForUser--
			}
		}
	}
}

// layoutThread sizes the thread viewport to the rows left over by the
// header, the conversation list and the footer.
func (model *Model) layoutThread() {
	if !model.ready {
		return
	}
	listRows := max(len(model.snapshot.Conversations), 1)
	// header, unread line, blank, list, blank, thread title, typing
	// line, separator, help.
	chrome := 8 + listRows
	if model.snapshot.Err != nil {
		chrome++
	}
	if model.markErr != nil {
		chrome++
	}
	model.thread.Width = model.width
	model.thread.Height = max(model.height-chrome, minThreadHeight)
}

// refreshThread re-renders the thread into the viewport, following the
// bottom unless the user scrolled away from it.
func (model *Model) refreshThread() {
	following := model.thread.AtBottom() || model.thread.TotalLineCount() == 0
	model.thread.SetContent(model.renderThreadBody())
	if following {
		model.thread.GotoBottom()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.received {
		return "Waiting for the first poll..."
	}

	sections := []string{model.renderHeader(), "", model.renderList()}
	if model.snapshot.Open {
		sections = append(sections, "", model.renderThreadPane())
	}
	width := model.width
	if width <= 0 {
		width = 40
	}
	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", width))
	sections = append(sections, separator, model.renderHelp())
	lines := strings.Split(strings.Join(sections, "\n"), "\n")
	for i, line := range lines {
		lines[i] = model.truncate(line)
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderHeader() string {
	theme := model.theme
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground).
		Render("lostfound: " + model.viewer)
	updated := lipgloss.NewStyle().Foreground(theme.FaintText).
		Render("updated " + model.snapshot.At.Local().Format(time.TimeOnly))
	lines := []string{title + "  " + updated}

	errorStyle := lipgloss.NewStyle().Foreground(theme.ErrorForeground)
	if model.snapshot.Err != nil {
		lines = append(lines, errorStyle.Render("sync error: "+model.snapshot.Err.Error()))
	}
	if model.markErr != nil {
		lines = append(lines, errorStyle.Render("mark read failed: "+model.markErr.Error()))
	}

	unread := fmt.Sprintf("%d unread", model.snapshot.UnreadCount)
	if model.snapshot.UnreadCount > 0 {
		unread = lipgloss.NewStyle().Bold(true).Foreground(theme.UnreadForeground).Render(unread)
	}
	lines = append(lines, unread)
	return strings.Join(lines, "\n")
}

func (model Model) renderList() string {
	theme := model.theme
	conversations := model.snapshot.Conversations
	if len(conversations) == 0 {
		return lipgloss.NewStyle().Foreground(theme.FaintText).Render("no conversations")
	}

	userStyle := lipgloss.NewStyle().Foreground(theme.UserForeground)
	unreadStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.UnreadForeground)
	selectedStyle := lipgloss.NewStyle().
		Background(theme.SelectedBackground).
		Foreground(theme.SelectedForeground)

	rows := make([]string, 0, len(conversations))
	for i, summary := range conversations {
		marker := "  "
		if i == model.cursor {
			marker = "> "
		}
		if model.isFollowing(summary) {
			marker = marker[:1] + "*"
		}
		unread := "         "
		if summary.UnreadForUser > 0 {
			unread = unreadStyle.Render(fmt.Sprintf("%2d unread", summary.UnreadForUser))
		}
		latest := summary.LatestMessage
		who := "you"
		if latest.Sender != model.viewer {
			who = latest.Sender
		}
		row := fmt.Sprintf("%sitem %-4d %s  %s  %s  %s: %s",
			marker,
			summary.ItemID,
			userStyle.Render(fmt.Sprintf("%-12s", summary.OtherParticipant)),
			unread,
			latest.SentAt.Local().Format(timeLayout),
			who,
			strings.ReplaceAll(latest.Content, "\n", " "),
		)
		row = model.truncate(row)
		if i == model.cursor {
			row = selectedStyle.Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (model Model) isFollowing(summary message.ConversationSummary) bool {
	return model.snapshot.Open &&
		model.snapshot.ItemID == summary.ItemID &&
		model.snapshot.Counterpart == summary.OtherParticipant
}

func (model Model) renderThreadPane() string {
	theme := model.theme
	title := fmt.Sprintf("item %d", model.snapshot.ItemID)
	if model.snapshot.Counterpart != "" {
		title += " with " + model.snapshot.Counterpart
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Underline(true).Render(title)}

	if model.ready {
		lines = append(lines, model.thread.View())
	} else {
		lines = append(lines, model.renderThreadBody())
	}

	typing := ""
	if model.snapshot.CounterpartTyping {
		typing = lipgloss.NewStyle().Foreground(theme.TypingForeground).
			Render(model.snapshot.Counterpart + " is typing...")
	}
	lines = append(lines, typing)
	return strings.Join(lines, "\n")
}

func (model Model) renderThreadBody() string {
	theme := model.theme
	if len(model.snapshot.Thread) == 0 {
		return lipgloss.NewStyle().Foreground(theme.FaintText).Render("no messages yet")
	}
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	userStyle := lipgloss.NewStyle().Foreground(theme.UserForeground)
	unreadStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.UnreadForeground)

	lines := make([]string, 0, len(model.snapshot.Thread))
	for _, m := range model.snapshot.Thread {
		marker := " "
		if m.Receiver == model.viewer && !m.IsRead {
			marker = unreadStyle.Render("*")
		}
		status := ""
		if m.Sender == model.viewer && m.IsRead {
			status = faint.Render("  read")
		}
		line := fmt.Sprintf("%s %s  %s: %s%s",
			marker,
			faint.Render(m.SentAt.Local().Format(timeLayout)),
			userStyle.Render(m.Sender),
			strings.ReplaceAll(m.Content, "\n", " "),
			status,
		)
		lines = append(lines, model.truncate(line))
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderHelp() string {
	bindings := []key.Binding{
		model.keys.Up, model.keys.Down, model.keys.Open, model.keys.Next,
		model.keys.Close, model.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, "  "))
}

// truncate clips a rendered line to the terminal width. Lines are left
// alone until the first WindowSizeMsg.
func (model Model) truncate(line string) string {
	if model.width <= 0 {
		return line
	}
	return ansi.Truncate(line, model.width, "…")
}
