// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package claimgate owns the OPEN/CLAIMED lifecycle of an item and
// decides who may message about it.
//
// Only the item's creator toggles the claim. Claiming blocks new
// contact from non-creators; it never freezes a conversation that
// already exists.
package claimgate

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

// ItemStore is the persistence the gate reads and writes.
// *messagestore.Store implements it.
type ItemStore interface {
	GetItem(ctx context.Context, itemID int64) (message.Item, error)
	UpdateItemClaim(ctx context.Context, itemID int64, fn func(item *message.Item) (bool, error)) (message.Item, error)
	HasExchanged(ctx context.Context, itemID int64, a, b string) (bool, error)
}

// Gate applies the claim state machine. Safe for concurrent use;
// transitions on one item serialize in the store.
type Gate struct {
	store  ItemStore
	clock  clock.Clock
	logger *slog.Logger
}

// New returns a Gate. A nil logger discards.
func New(store ItemStore, clk clock.Clock, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{store: store, clock: clk, logger: logger}
}

// Claim moves the item from OPEN to CLAIMED on behalf of requester,
// recording ClaimedAt and ClaimedBy. Claiming a CLAIMED item returns
// its current state unchanged.
func (g *Gate) Claim(ctx context.Context, itemID int64, requester string) (message.ItemStateResponse, error) {
	return g.transition(ctx, "claim", itemID, requester, true)
}

// Unclaim moves the item from CLAIMED back to OPEN, clearing ClaimedAt
// and ClaimedBy. Unclaiming an OPEN item is a no-op.
func (g *Gate) Unclaim(ctx context.Context, itemID int64, requester string) (message.ItemStateResponse, error) {
	return g.transition(ctx, "unclaim", itemID, requester, false)
}

func (g *Gate) transition(ctx context.Context, op string, itemID int64, requester string, claim bool) (message.ItemStateResponse, error) {
	changed := false
	item, err := g.store.UpdateItemClaim(ctx, itemID, func(item *message.Item) (bool, error) {
		if item.CreatedBy != requester {
			return false, failure.Unauthorized(op, "only the creator of item %d may %s it", itemID, op)
		}
		if item.IsClaimed == claim {
			return false, nil
		}
		item.IsClaimed = claim
		if claim {
			now := g.clock.Now().UTC()
			item.ClaimedAt = &now
			item.ClaimedBy = requester
		} else {
			item.ClaimedAt = nil
			item.ClaimedBy = ""
		}
		changed = true
		return true, nil
	})
	if err != nil {
		return message.ItemStateResponse{}, err
	}
	if changed {
		g.logger.Info("item claim state changed",
			"item_id", itemID,
			"state", item.State(),
			"by", requester,
		)
	}
	return g.describe(ctx, item, requester)
}

// State returns the item's claim state and viewer's affordances.
func (g *Gate) State(ctx context.Context, itemID int64, viewer string) (message.ItemStateResponse, error) {
	item, err := g.store.GetItem(ctx, itemID)
	if err != nil {
		return message.ItemStateResponse{}, err
	}
	return g.describe(ctx, item, viewer)
}

func (g *Gate) describe(ctx context.Context, item message.Item, viewer string) (message.ItemStateResponse, error) {
	affordances := message.Affordances{}
	if viewer == item.CreatedBy {
		affordances.CanClaim = !item.IsClaimed
		affordances.CanUnclaim = item.IsClaimed
	} else if viewer != "" {
		affordances.CanContact = !item.IsClaimed
		if item.IsClaimed {
			exchanged, err := g.store.HasExchanged(ctx, item.ID, viewer, item.CreatedBy)
			if err != nil {
				return message.ItemStateResponse{}, err
			}
			affordances.CanContact = exchanged
		}
	}
	return message.ItemStateResponse{
		Item:        item,
		State:       item.State(),
		Affordances: affordances,
	}, nil
}

// CheckSend decides whether sender may message receiver about itemID.
// The pair must include the item's creator. The creator may always
// send. Anyone else may send while the item is OPEN, or at any time in
// a conversation that already has a message.
func (g *Gate) CheckSend(ctx context.Context, itemID int64, sender, receiver string) error {
	const op = "send"

	item, err := g.store.GetItem(ctx, itemID)
	if err != nil {
		if failure.Is(err, failure.KindNotFound) {
			return failure.Validation(op, "item %d does not exist", itemID)
		}
		return err
	}
	if sender != item.CreatedBy && receiver != item.CreatedBy {
		return failure.Validation(op, "conversations about item %d must include its creator", itemID)
	}
	if sender == item.CreatedBy || !item.IsClaimed {
		return nil
	}
	exchanged, err := g.store.HasExchanged(ctx, itemID, sender, receiver)
	if err != nil {
		return err
	}
	if !exchanged {
		return failure.Unauthorized(op, "item %d is claimed", itemID)
	}
	return nil
}
