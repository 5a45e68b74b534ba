// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for gazelog.
//
// Configuration is loaded from a single file specified by either the
// GAZELOG_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). Without either, [Default] applies. There is no
// automatic file search.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas allowed; everything else is parsed as YAML. Keys are
// the same in both forms.
//
// ${VAR} and ${VAR:-default} patterns are expanded in path fields
// after loading. Command-line flags are applied by the caller after
// Load, and [Config.Validate] runs last.
//
// This package depends on no other gazelog packages.
package config
