// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package osc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// bundleMarker is the 8-byte prefix that identifies a bundle:
// "#bundle" followed by a null terminator.
var bundleMarker = []byte("#bundle\x00")

const (
	// bundleHeaderSize is the marker plus the 8-byte time tag.
	bundleHeaderSize = 16

	// MaxDepth bounds bundle nesting. Each nesting level costs at
	// least 20 bytes, so a single datagram could otherwise drive
	// thousands of recursive calls.
	MaxDepth = 32
)

var (
	// ErrEmpty is returned for a zero-length element.
	ErrEmpty = errors.New("osc: empty element")

	// ErrUnterminated is returned when a string has no null
	// terminator before the end of its element.
	ErrUnterminated = errors.New("osc: unterminated string")

	// ErrTruncated is returned when string padding or a numeric
	// argument runs past the end of its element.
	ErrTruncated = errors.New("osc: element truncated")

	// ErrDepth is returned when bundles nest deeper than MaxDepth.
	ErrDepth = errors.New("osc: bundle nesting too deep")
)

// MessageError reports a message that failed to decode after its
// address was read. It wraps one of the sentinel errors above.
type MessageError struct {
	Address string
	Err     error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("osc: message %s: %v", e.Address, e.Err)
}

func (e *MessageError) Unwrap() error { return e.Err }

// IsBundle reports whether data starts with the bundle marker.
func IsBundle(data []byte) bool {
	return len(data) >= len(bundleMarker) && bytes.Equal(data[:len(bundleMarker)], bundleMarker)
}

// Parse decodes one element from data. For a bundle, failures inside
// nested elements are absorbed into the returned Bundle (Skipped,
// Truncated) and the error is nil; an error is only returned when the
// top-level element itself cannot be decoded.
func Parse(data []byte) (Element, error) {
	return parseElement(data, 0)
}

func parseElement(data []byte, depth int) (Element, error) {
	if depth > MaxDepth {
		return nil, ErrDepth
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if IsBundle(data) {
		return parseBundle(data, depth), nil
	}
	message, err := parseMessage(data)
	if err != nil {
		return nil, err
	}
	return message, nil
}

// parseBundle never fails: a damaged bundle yields whatever elements
// decoded before the damage.
func parseBundle(data []byte, depth int) Bundle {
	var bundle Bundle
	if len(data) < bundleHeaderSize {
		bundle.Truncated = true
		return bundle
	}
	copy(bundle.TimeTag[:], data[len(bundleMarker):bundleHeaderSize])

	remaining := data[bundleHeaderSize:]
	for len(remaining) >= 4 {
		size := int32(binary.BigEndian.Uint32(remaining))
		remaining = remaining[4:]
		if size < 0 || int(size) > len(remaining) {
			bundle.Truncated = true
			break
		}

		body := remaining[:size]
		remaining = remaining[size:]

		nested, err := parseElement(body, depth+1)
		if err != nil {
			bundle.Skipped++
			var messageError *MessageError
			if errors.As(err, &messageError) {
				bundle.Elements = append(bundle.Elements, Damaged{Address: messageError.Address, Err: messageError.Err})
			}
			continue
		}
		bundle.Elements = append(bundle.Elements, nested)
	}
	return bundle
}

func parseMessage(data []byte) (Message, error) {
	address, rest, err := readString(data)
	if errors.Is(err, ErrUnterminated) {
		return Message{}, fmt.Errorf("reading address: %w", err)
	}
	if err != nil {
		return Message{}, &MessageError{Address: address, Err: err}
	}
	message := Message{Address: address}

	// A message without a type tag carries no arguments.
	if len(rest) == 0 {
		return message, nil
	}
	message.TypeTag, rest, err = readString(rest)
	if err != nil {
		return Message{}, &MessageError{Address: address, Err: err}
	}

	for _, tag := range message.Tags() {
		if tag != 'f' {
			break
		}
		if len(rest) < 4 {
			return Message{}, &MessageError{Address: address, Err: fmt.Errorf("float argument %d: %w", len(message.Args), ErrTruncated)}
		}
		message.Args = append(message.Args, math.Float32frombits(binary.BigEndian.Uint32(rest)))
		rest = rest[4:]
	}
	return message, nil
}

// readString reads a null-terminated string and its padding. The
// string, its terminator, and the padding together occupy a multiple
// of 4 bytes counted from the string start. When only the padding is
// cut short, the string is still returned alongside ErrTruncated.
func readString(data []byte) (string, []byte, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return "", nil, ErrUnterminated
	}
	padded := (end + 4) &^ 3
	if padded > len(data) {
		return string(data[:end]), nil, ErrTruncated
	}
	return string(data[:end]), data[padded:], nil
}
