// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gaze

import "time"

// Sample is the eye state as of the most recently decoded datagram.
// The listener owns the cumulative Sample and publishes copies; a
// published copy is never mutated afterwards.
type Sample struct {
	LeftGazeX, LeftGazeY   float32
	RightGazeX, RightGazeY float32

	// LeftOpenness and RightOpenness are 1 minus the combined
	// eyes-closed amount. The protocol carries a single blink value,
	// so both fields are always equal.
	LeftOpenness, RightOpenness float32

	// Params is the parameter log of the last datagram: one bracketed
	// entry per message, recognized or not, in wire order.
	Params string

	// RawHex is the last datagram rendered as uppercase hex with no
	// separators.
	RawHex string

	// Seq is the 1-based sequence number of the datagram this sample
	// reflects, counted by the listener.
	Seq uint64

	// ReceivedAt is when the listener received the datagram.
	ReceivedAt time.Time
}

// Update carries the scalar fields a single datagram set. A nil
// field was not touched and keeps its prior value when applied.
type Update struct {
	LeftGazeX, LeftGazeY   *float32
	RightGazeX, RightGazeY *float32
	LeftOpenness           *float32
	RightOpenness          *float32
}

// Empty reports whether the update touches no field.
func (u Update) Empty() bool {
	return u.LeftGazeX == nil && u.LeftGazeY == nil &&
		u.RightGazeX == nil && u.RightGazeY == nil &&
		u.LeftOpenness == nil && u.RightOpenness == nil
}

// Apply overwrites the fields of s that the update touched.
func (u Update) Apply(s *Sample) {
	apply(&s.LeftGazeX, u.LeftGazeX)
	apply(&s.LeftGazeY, u.LeftGazeY)
	apply(&s.RightGazeX, u.RightGazeX)
	apply(&s.RightGazeY, u.RightGazeY)
	apply(&s.LeftOpenness, u.LeftOpenness)
	apply(&s.RightOpenness, u.RightOpenness)
}

func apply(field *float32, value *float32) {
	if value != nil {
		*field = *value
	}
}
