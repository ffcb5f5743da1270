// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation derives a user's conversation list from the
// messages they sent and received. It holds no state: every result is
// recomputed from the message store on each poll, so two pollers
// reading the same committed messages always agree.
//
// A conversation is identified by an item and the unordered pair of
// participants. When one user talks to several counterparts about the
// same item (an item creator fielding more than one claimant), each
// pair is a separate summary; messages are never merged across pairs.
package conversation

import (
	"cmp"
	"slices"

	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

// Summary is one conversation as seen by a single user.
type Summary = message.ConversationSummary

// Later reports whether a is ordered after b: a later SentAt wins, and
// on identical SentAt the higher ID wins.
func Later(a, b *message.Message) bool {
	return compare(a, b) > 0
}

// compare orders messages chronologically by (SentAt, ID).
func compare(a, b *message.Message) int {
	if c := a.SentAt.Compare(b.SentAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

type groupKey struct {
	itemID      int64
	counterpart string
}

// Build groups the messages involving username by (item, counterpart)
// and summarizes each group. Messages that do not involve username are
// ignored. The result is ordered by latest message, most recent first,
// with ties broken by ascending item ID then counterpart.
func Build(username string, messages []message.Message) []Summary {
	groups := make(map[groupKey]*Summary)
	for i := range messages {
		m := &messages[i]
		if !m.Involves(username) {
			continue
		}
		key := groupKey{itemID: m.ItemID, counterpart: m.Counterpart(username)}
		summary, ok := groups[key]
		if !ok {
			summary = &Summary{ItemID: m.ItemID, LatestMessage: *m}
			groups[key] = summary
		} else if Later(m, &summary.LatestMessage) {
			summary.LatestMessage = *m
		}
		summary.MessageCount++
		if m.Receiver == username && !m.IsRead {
			summary.UnreadForUser++
		}
	}

	summaries := make([]Summary, 0, len(groups))
	for _, summary := range groups {
		summary.OtherParticipant = summary.LatestMessage.Counterpart(username)
		summaries = append(summaries, *summary)
	}
	slices.SortFunc(summaries, func(a, b Summary) int {
		if c := compare(&b.LatestMessage, &a.LatestMessage); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ItemID, b.ItemID); c != 0 {
			return c
		}
		return cmp.Compare(a.OtherParticipant, b.OtherParticipant)
	})
	return summaries
}

// ByItem indexes summaries by item. Each slice keeps the order of the
// input, so an item's most recently active pair comes first.
func ByItem(summaries []Summary) map[int64][]Summary {
	byItem := make(map[int64][]Summary, len(summaries))
	for _, summary := range summaries {
		byItem[summary.ItemID] = append(byItem[summary.ItemID], summary)
	}
	return byItem
}

// Counterpart returns the participant other than username in the most
// recent message of a thread, or "" if no message involves username.
func Counterpart(username string, thread []message.Message) string {
	var latest *message.Message
	for i := range thread {
		m := &thread[i]
		if !m.Involves(username) {
			continue
		}
		if latest == nil || Later(m, latest) {
			latest = m
		}
	}
	if latest == nil {
		return ""
	}
	return latest.Counterpart(username)
}
