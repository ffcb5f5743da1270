// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package failure defines the error taxonomy shared by every lostfound
// component and transport.
//
// Each failure carries a [Kind] that survives wrapping with %w and
// crossing the socket boundary (the socket envelope transports the kind
// string, and the client rebuilds a typed error). Transports map kinds
// to their own status vocabulary: HTTP uses [HTTPStatus], the CLI maps
// them to exit codes.
//
//   - [KindValidation]: malformed input. Never retried.
//   - [KindNotFound]: a referenced message or item does not exist.
//   - [KindAuthorization]: the actor lacks rights for the operation.
//   - [KindUnavailable]: the backing store failed twice in a row. The
//     caller retries on its next poll tick.
//
// Errors without a kind are reported as [KindInternal].
package failure
