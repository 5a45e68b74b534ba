// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package osc decodes and encodes the OSC-style binary message format
// broadcast by face and eye tracking software over UDP.
//
// A datagram carries one [Element]: either a [Message] (address path,
// type tag string, arguments) or a [Bundle] (an 8-byte time tag
// followed by length-prefixed nested elements). Strings are ASCII,
// null-terminated, and padded with nulls to a multiple of 4 bytes.
// Numeric arguments are big-endian.
//
// The decoder treats its input as untrusted. Every nested element is
// parsed from its own length-delimited subslice, so a malformed
// element can never read into its siblings. A bundle element that
// fails to parse is counted in [Bundle].Skipped and its siblings are
// still attempted; a declared length that overruns the buffer ends
// the bundle ([Bundle].Truncated) while keeping the elements already
// decoded.
//
// Only float32 ('f') arguments are decoded. Argument parsing stops at
// the first other type tag character without error; callers that care
// compare len(Args) against the type tag.
//
// [AppendMessage] and [AppendBundle] build well-formed datagrams for
// test fixtures and synthetic senders.
package osc
