// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package claimgate

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/failure"
	"github.com/bureau-foundation/lostfound/lib/messagestore"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *messagestore.Store
	gate  *Gate
	clock *clock.FakeClock
	item  message.Item
}

// newFixture registers alice, bob (creator of the item), and carol.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	fakeClock := clock.Fake(epoch)
	store, err := messagestore.Open(messagestore.Config{
		Path:   filepath.Join(t.TempDir(), "gate.db"),
		Clock:  fakeClock,
		Logger: slog.Default(),
	})
	if err != nil {
		t.Fatalf("messagestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, username := range []string{"alice", "bob", "carol"} {
		if err := store.RegisterUser(ctx, username); err != nil {
			t.Fatal(err)
		}
	}
	item, err := store.RegisterItem(ctx, "wallet", "bob")
	if err != nil {
		t.Fatal(err)
	}
	return fixture{
		store: store,
		gate:  New(store, fakeClock, nil),
		clock: fakeClock,
		item:  item,
	}
}

func TestClaimLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.gate.State(ctx, f.item.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if state.State != message.StateOpen {
		t.Fatalf("initial state = %q, want open", state.State)
	}
	if !state.Affordances.CanClaim || state.Affordances.CanUnclaim || state.Affordances.CanContact {
		t.Errorf("creator affordances while open = %+v", state.Affordances)
	}

	f.clock.Advance(time.Hour)
	claimed, err := f.gate.Claim(ctx, f.item.ID, "bob")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.State != message.StateClaimed {
		t.Fatalf("state after claim = %q", claimed.State)
	}
	if claimed.Item.ClaimedAt == nil || !claimed.Item.ClaimedAt.Equal(f.clock.Now()) {
		t.Errorf("ClaimedAt = %v, want %v", claimed.Item.ClaimedAt, f.clock.Now())
	}
	if claimed.Item.ClaimedBy != "bob" {
		t.Errorf("ClaimedBy = %q, want bob", claimed.Item.ClaimedBy)
	}
	firstClaimedAt := *claimed.Item.ClaimedAt

	// Re-claiming is a no-op that keeps the original timestamp.
	f.clock.Advance(time.Minute)
	again, err := f.gate.Claim(ctx, f.item.ID, "bob")
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if again.Item.ClaimedAt == nil || !again.Item.ClaimedAt.Equal(firstClaimedAt) {
		t.Errorf("second Claim changed ClaimedAt to %v", again.Item.ClaimedAt)
	}

	unclaimed, err := f.gate.Unclaim(ctx, f.item.ID, "bob")
	if err != nil {
		t.Fatalf("Unclaim: %v", err)
	}
	if unclaimed.State != message.StateOpen || unclaimed.Item.ClaimedAt != nil || unclaimed.Item.ClaimedBy != "" {
		t.Errorf("after unclaim = %+v", unclaimed.Item)
	}
	stored, err := f.store.GetItem(ctx, f.item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsClaimed || stored.ClaimedAt != nil || stored.ClaimedBy != "" {
		t.Errorf("stored after unclaim = %+v", stored)
	}

	// Unclaiming an open item is a no-op.
	if _, err := f.gate.Unclaim(ctx, f.item.ID, "bob"); err != nil {
		t.Errorf("Unclaim of open item: %v", err)
	}
}

func TestClaimAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.gate.Claim(ctx, f.item.ID, "alice"); !failure.Is(err, failure.KindAuthorization) {
		t.Errorf("Claim by non-creator = %v, want authorization failure", err)
	}
	if _, err := f.gate.Unclaim(ctx, f.item.ID, "alice"); !failure.Is(err, failure.KindAuthorization) {
		t.Errorf("Unclaim by non-creator = %v, want authorization failure", err)
	}
	if _, err := f.gate.Claim(ctx, f.item.ID+1, "bob"); !failure.Is(err, failure.KindNotFound) {
		t.Errorf("Claim of missing item = %v, want not-found failure", err)
	}

	state, err := f.gate.State(ctx, f.item.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if state.State != message.StateOpen {
		t.Error("rejected claim changed state")
	}
}

// bob creates the item and claims it; carol has never written and is
// rejected, while alice, who already talked to bob, keeps sending.
func TestCheckSendAfterClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.gate.CheckSend(ctx, f.item.ID, "alice", "bob"); err != nil {
		t.Fatalf("CheckSend while open: %v", err)
	}
	if _, err := f.store.Send(ctx, "alice", "bob", f.item.ID, "that's mine"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.gate.Claim(ctx, f.item.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	if err := f.gate.CheckSend(ctx, f.item.ID, "carol", "bob"); !failure.Is(err, failure.KindAuthorization) {
		t.Errorf("new contact after claim = %v, want authorization failure", err)
	}
	if err := f.gate.CheckSend(ctx, f.item.ID, "alice", "bob"); err != nil {
		t.Errorf("existing conversation blocked after claim: %v", err)
	}
	if err := f.gate.CheckSend(ctx, f.item.ID, "bob", "alice"); err != nil {
		t.Errorf("creator blocked after claim: %v", err)
	}

	carolState, err := f.gate.State(ctx, f.item.ID, "carol")
	if err != nil {
		t.Fatal(err)
	}
	if carolState.Affordances.CanContact {
		t.Error("carol can contact a claimed item")
	}
	aliceState, err := f.gate.State(ctx, f.item.ID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !aliceState.Affordances.CanContact {
		t.Error("alice lost contact with her existing conversation")
	}
	bobState, err := f.gate.State(ctx, f.item.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if bobState.Affordances.CanClaim || !bobState.Affordances.CanUnclaim {
		t.Errorf("creator affordances while claimed = %+v", bobState.Affordances)
	}

	// Unclaiming reopens new contact.
	if _, err := f.gate.Unclaim(ctx, f.item.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if err := f.gate.CheckSend(ctx, f.item.ID, "carol", "bob"); err != nil {
		t.Errorf("new contact after unclaim: %v", err)
	}
}

func TestCheckSendRequiresCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.gate.CheckSend(ctx, f.item.ID, "alice", "carol"); !failure.Is(err, failure.KindValidation) {
		t.Errorf("pair without creator = %v, want validation failure", err)
	}
	if err := f.gate.CheckSend(ctx, f.item.ID+9, "alice", "bob"); !failure.Is(err, failure.KindValidation) {
		t.Errorf("unknown item = %v, want validation failure", err)
	}
}
