// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by lostfound.
//
// Everything time-dependent in the service takes a [Clock]: message
// timestamps, typing-signal expiry, the presence sweeper, and the
// client poll cadence. Production wiring uses [Real]; tests use [Fake]
// and move time forward explicitly with Advance, so expiry boundaries
// (a signal at t=0 is visible at t=1999ms and gone at t=2000ms) are
// asserted exactly rather than approximately.
//
// A goroutine that blocks on a ticker registers a waiter with the fake
// clock. Tests call WaitForTimers before Advance to avoid racing the
// registration:
//
//	c := clock.Fake(epoch)
//	go poller.Run(ctx, handler)
//	c.WaitForTimers(1)
//	c.Advance(3 * time.Second)
package clock
