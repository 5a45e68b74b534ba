// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handoff provides a single-slot, replace-on-full channel for
// passing the latest value from a producer goroutine to a periodic
// consumer.
//
// A [Slot] is not a queue. It holds at most one value; publishing
// into a full slot discards the unconsumed value and keeps the new
// one. A consumer that drains once per frame therefore always sees
// the most recent publish, and N publishes between two drains lose
// N-1 of them. That is the intended sampling behavior for telemetry
// aligned to a render cadence, not a loss to recover from.
//
// "Slot is full" is the dirty flag: Take returns false when nothing
// was published since the last successful Take.
package handoff

import "sync/atomic"

// Slot is a capacity-1 channel where Offer overwrites. It supports
// exactly one producer goroutine and any number of consumers, though
// the recorder uses one.
type Slot[T any] struct {
	ch chan T

	offered     atomic.Uint64
	taken       atomic.Uint64
	overwritten atomic.Uint64
}

// New creates an empty Slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan T, 1)}
}

// Offer publishes value, replacing any value not yet taken. Never
// blocks and performs no I/O. Must only be called from a single
// goroutine: with one producer the drain-then-send below always
// terminates because consumers can only empty the slot.
func (s *Slot[T]) Offer(value T) {
	s.offered.Add(1)
	for {
		select {
		case s.ch <- value:
			return
		default:
		}
		select {
		case <-s.ch:
			s.overwritten.Add(1)
		default:
		}
	}
}

// Take removes and returns the pending value. Returns false when the
// slot is empty. Never blocks.
func (s *Slot[T]) Take() (T, bool) {
	select {
	case value := <-s.ch:
		s.taken.Add(1)
		return value, true
	default:
		var zero T
		return zero, false
	}
}

// Stats is a point-in-time snapshot of slot counters.
type Stats struct {
	// Offered counts every Offer call.
	Offered uint64
	// Taken counts successful Take calls.
	Taken uint64
	// Overwritten counts values discarded before any consumer took
	// them.
	Overwritten uint64
}

// Stats returns the slot counters. The three values are read
// independently and may be mutually inconsistent by one while the
// producer is active.
func (s *Slot[T]) Stats() Stats {
	return Stats{
		Offered:     s.offered.Load(),
		Taken:       s.taken.Load(),
		Overwritten: s.overwritten.Load(),
	}
}
