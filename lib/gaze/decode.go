// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gaze

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/gazelog/lib/osc"
)

// Recognized addresses.
const (
	// AddressPitchYaw carries left pitch, left yaw, right pitch,
	// right yaw as four floats with type tag ",ffff".
	AddressPitchYaw = "/tracking/eye/LeftRightPitchYaw"

	// AddressEyesClosed carries one combined eyes-closed amount in
	// [0, 1] as its first float argument.
	AddressEyesClosed = "/tracking/eye/EyesClosedAmount"

	pitchYawTypeTag = ",ffff"
)

// Result is the outcome of decoding one datagram.
type Result struct {
	// Update holds the scalar fields set by recognized messages.
	// When several messages set the same field, the last one in wire
	// order wins.
	Update Update

	// Params is the parameter log for the datagram.
	Params string

	// RawHex is the datagram in uppercase hex.
	RawHex string

	// Messages counts decoded messages, recognized or not.
	Messages int

	// Skipped counts elements that failed to decode, including a
	// top-level element that could not be parsed at all.
	Skipped int
}

// Decode decodes a datagram and routes its messages into a Result.
// Decode is pure: the same bytes always produce the same Result.
// Malformed input never fails the call; damaged elements are dropped
// and counted in Result.Skipped. A damaged message whose address could
// still be read is logged as [UNKNOWN_TYPE:address] and sets no field.
func Decode(datagram []byte) Result {
	result := Result{RawHex: strings.ToUpper(hex.EncodeToString(datagram))}

	element, err := osc.Parse(datagram)
	if err != nil {
		result.Skipped = 1
		var messageError *osc.MessageError
		if errors.As(err, &messageError) {
			result.Params = unknownType(messageError.Address)
		}
		return result
	}
	result.Skipped = osc.Skipped(element)

	var params strings.Builder
	osc.Visit(element, func(element osc.Element) {
		switch e := element.(type) {
		case osc.Message:
			result.Messages++
			route(e, &result.Update, &params)
		case osc.Damaged:
			params.WriteString(unknownType(e.Address))
		}
	})
	result.Params = params.String()
	return result
}

func unknownType(address string) string {
	return "[UNKNOWN_TYPE:" + address + "]"
}

func route(message osc.Message, update *Update, params *strings.Builder) {
	switch {
	case message.Address == AddressPitchYaw && message.TypeTag == pitchYawTypeTag && len(message.Args) == 4:
		args := message.Args
		update.LeftGazeX, update.LeftGazeY = &args[0], &args[1]
		update.RightGazeX, update.RightGazeY = &args[2], &args[3]
		fmt.Fprintf(params, "[Gaze4:%.3f|%.3f|%.3f|%.3f]", args[0], args[1], args[2], args[3])

	case message.Address == AddressEyesClosed && len(message.TypeTag) >= 2 && len(message.Args) >= 1:
		closed := message.Args[0]
		openness := 1 - closed
		update.LeftOpenness = &openness
		update.RightOpenness = &openness
		fmt.Fprintf(params, "[Blink:%.3f]", closed)

	case strings.HasPrefix(message.Tags(), "f") && len(message.Args) >= 1:
		fmt.Fprintf(params, "[UNKNOWN:%s=%.3f]", message.Address, message.Args[0])

	default:
		params.WriteString(unknownType(message.Address))
	}
}
