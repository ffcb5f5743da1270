// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the lostfound CLI.
//
// The central type is [Command]: a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] parses flags, routes to subcommands, and prints
// structured help. Unknown commands and flags get a "did you mean"
// suggestion computed by Levenshtein distance (threshold 3).
//
// Command parameters are declared as tagged structs and bound with
// [FlagsFromParams]. Embedding [Connection] adds the --socket and
// --user flags every service-backed command needs; embedding
// [JSONOutput] adds --json.
package cli
