// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides gazelog's CBOR encoding configuration.
//
// The CSV session file is the interchange format for analysis tools.
// Everything gazelog writes for itself, currently the session
// manifest, is CBOR, encoded with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same manifest always encodes to the
// same bytes, so a manifest can be compared or hashed directly.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Types serialized only as CBOR use `cbor` struct tags.
package codec
