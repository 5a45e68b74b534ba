// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package osc

import (
	"encoding/binary"
	"math"
	"strings"
)

// AppendMessage appends the wire encoding of a message with float32
// arguments to dst. The type tag is derived from the argument count.
func AppendMessage(dst []byte, address string, args ...float32) []byte {
	dst = appendString(dst, address)
	dst = appendString(dst, ","+strings.Repeat("f", len(args)))
	for _, arg := range args {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(arg))
	}
	return dst
}

// AppendBundle appends a bundle containing the given pre-encoded
// elements to dst. Each element is prefixed with its big-endian
// length.
func AppendBundle(dst []byte, timeTag [8]byte, elements ...[]byte) []byte {
	dst = append(dst, bundleMarker...)
	dst = append(dst, timeTag[:]...)
	for _, element := range elements {
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(element)))
		dst = append(dst, element...)
	}
	return dst
}

// appendString appends s, its null terminator, and null padding to
// the next multiple of 4 bytes.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	padding := 4 - len(s)%4
	for range padding {
		dst = append(dst, 0)
	}
	return dst
}
