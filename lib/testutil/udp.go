// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"testing"
)

// SendDatagram sends data as a single UDP datagram to address.
func SendDatagram(t *testing.T, address net.Addr, data []byte) {
	t.Helper()
	connection, err := net.Dial("udp", address.String())
	if err != nil {
		t.Fatalf("dialing %s: %v", address, err)
	}
	defer connection.Close()
	if _, err := connection.Write(data); err != nil {
		t.Fatalf("sending %d bytes to %s: %v", len(data), address, err)
	}
}
