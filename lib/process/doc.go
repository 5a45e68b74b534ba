// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for gazelog
// binaries. It covers the raw I/O that happens before the structured
// logger exists or after main has given up on it:
//
//   - Fatal error reporting to stderr from main().
//   - Process exit with a status derived from the error.
package process
