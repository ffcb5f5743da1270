// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads lostfound service configuration.
//
// Configuration comes from a single file named by the LOSTFOUND_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no fallback file. YAML is the
// native format; files ending in .json or .jsonc are accepted and may
// carry comments and trailing commas.
//
// The file may contain development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production is stricter by default: debug logging is lowered to info
// and seed data is rejected by [Config.Validate].
//
// After loading, ${HOME}, ${LOSTFOUND_STATE}, and ${VAR:-default}
// patterns in path fields are expanded.
package config
