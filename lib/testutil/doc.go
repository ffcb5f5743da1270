// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, whose paths are limited to 108 bytes; t.TempDir() paths can
// exceed that.
//
// [RequireReceive] and [RequireClosed] bound every channel wait in
// tests with a timeout. They are the only place tests touch the real
// clock; everything time-dependent runs on clock.Fake.
package testutil
