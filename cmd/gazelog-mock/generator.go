// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
	"time"

	"github.com/bureau-foundation/gazelog/lib/gaze"
	"github.com/bureau-foundation/gazelog/lib/osc"
)

// blinkDuration is how long the eyes take to close and reopen.
const blinkDuration = 150 * time.Millisecond

// generator produces the datagrams for successive frames.
type generator struct {
	rate       int
	blinkEvery int
	blinkFor   int
	bundle     bool

	frame uint64
}

func newGenerator(rate int, blinkEvery time.Duration, bundle bool) *generator {
	framesPer := func(d time.Duration) int {
		return max(1, int(d*time.Duration(rate)/time.Second))
	}
	return &generator{
		rate:       rate,
		blinkEvery: framesPer(blinkEvery),
		blinkFor:   framesPer(blinkDuration),
		bundle:     bundle,
	}
}

// next returns the datagrams for the next frame.
func (g *generator) next() [][]byte {
	g.frame++
	seconds := float64(g.frame) / float64(g.rate)

	// Both eyes follow the same figure with a small vergence offset.
	pitch := float32(0.3 * math.Sin(2*math.Pi*0.2*seconds))
	yaw := float32(0.4 * math.Sin(2*math.Pi*0.3*seconds))
	messages := [][]byte{
		osc.AppendMessage(nil, gaze.AddressPitchYaw, pitch, yaw-0.02, pitch, yaw+0.02),
	}
	if closed, blinking := g.closedAmount(); blinking {
		messages = append(messages, osc.AppendMessage(nil, gaze.AddressEyesClosed, closed))
	}

	if !g.bundle {
		return messages
	}
	var timeTag [8]byte
	timeTag[7] = 1 // "immediately"
	return [][]byte{osc.AppendBundle(nil, timeTag, messages...)}
}

// closedAmount reports the eyes-closed amount for the current frame:
// a triangle ramp from 0 to 1 and back over blinkFor frames, once
// every blinkEvery frames. The second result is false between blinks.
func (g *generator) closedAmount() (float32, bool) {
	phase := int(g.frame % uint64(g.blinkEvery))
	if phase >= g.blinkFor {
		// One explicit "open" message right after each blink.
		return 0, phase == g.blinkFor
	}
	half := float32(g.blinkFor) / 2
	distance := float32(math.Abs(float64(float32(phase) - half)))
	return 1 - distance/half, true
}
