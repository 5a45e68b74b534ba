// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session describes a finished recording session in a CBOR
// manifest stored next to the session file.
//
// The manifest carries what the CSV cannot: when the session started
// and stopped, how much traffic the listener saw, how many samples the
// handoff slot overwrote before the recorder observed them, and a
// BLAKE3 digest of the session file so that a copied or archived
// session can be verified later.
//
// The manifest is written atomically (temporary file, fsync, rename,
// directory fsync) so readers never see a partial manifest.
package session
