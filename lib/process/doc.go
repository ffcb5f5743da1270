// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint error handler shared by
// lostfound-service and the lostfound CLI: errors returned by run()
// before or after the structured logger exists are reported on stderr
// with a nonzero exit.
package process
