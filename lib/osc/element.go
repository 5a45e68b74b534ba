// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package osc

// Element is a decoded datagram element: a [Message] or a [Bundle].
type Element interface {
	element()
}

// Message is a single addressed OSC message.
type Message struct {
	// Address is the slash-separated address path, for example
	// "/tracking/eye/EyesClosedAmount".
	Address string

	// TypeTag is the raw type tag string including its leading ','.
	// Empty when the sender omitted the type tag.
	TypeTag string

	// Args holds the decoded float32 arguments in order. Decoding
	// stops at the first non-'f' tag character, so len(Args) may be
	// less than the number of tag characters.
	Args []float32
}

func (Message) element() {}

// Tags returns the argument type characters: the type tag without its
// leading ','. Returns "" when the type tag is missing or malformed.
func (m Message) Tags() string {
	if len(m.TypeTag) == 0 || m.TypeTag[0] != ',' {
		return ""
	}
	return m.TypeTag[1:]
}

// Bundle groups nested elements under one time tag.
type Bundle struct {
	// TimeTag is the raw 8-byte NTP time tag. Not interpreted.
	TimeTag [8]byte

	// Elements holds the nested elements in wire order. A message
	// that failed to decode after its address was read is kept as a
	// [Damaged] placeholder; other failures leave no entry.
	Elements []Element

	// Skipped counts nested elements whose length prefix was valid
	// but whose contents failed to decode, Damaged ones included.
	Skipped int

	// Truncated is set when the bundle ended early: the header was
	// incomplete or a declared element length was negative or ran
	// past the end of the buffer.
	Truncated bool
}

func (Bundle) element() {}

// Damaged marks a nested message whose address decoded but whose type
// tag or arguments did not. It carries no arguments.
type Damaged struct {
	Address string
	Err     error
}

func (Damaged) element() {}

// Walk calls fn for every message reachable from element, depth-first
// in wire order.
func Walk(element Element, fn func(Message)) {
	switch e := element.(type) {
	case Message:
		fn(e)
	case Bundle:
		for _, nested := range e.Elements {
			Walk(nested, fn)
		}
	}
}

// Visit calls fn for every Message and Damaged element reachable from
// element, depth-first in wire order.
func Visit(element Element, fn func(Element)) {
	switch e := element.(type) {
	case Message, Damaged:
		fn(e)
	case Bundle:
		for _, nested := range e.Elements {
			Visit(nested, fn)
		}
	}
}

// Skipped returns the total number of nested elements that failed to
// decode anywhere beneath element, plus one for every truncated bundle.
func Skipped(element Element) int {
	bundle, ok := element.(Bundle)
	if !ok {
		return 0
	}
	total := bundle.Skipped
	if bundle.Truncated {
		total++
	}
	for _, nested := range bundle.Elements {
		total += Skipped(nested)
	}
	return total
}
