// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies errors returned by datagram sockets.
package netutil

import (
	"errors"
	"net"
	"syscall"
)

// IsClosedError reports whether err is what a blocked socket read
// returns after the socket was closed locally. A receive loop treats
// it as a stop signal rather than a fault.
//
// Resets and refusals are not close errors for UDP: Linux reports a
// previous ICMP port-unreachable as ECONNREFUSED on the next read,
// and Windows reports it as a reset. The socket is still usable after
// both.
func IsClosedError(err error) bool {
	return err != nil && errors.Is(err, net.ErrClosed)
}

// IsTransientPacketError reports whether err is a per-datagram
// condition that says nothing about the health of the socket: ICMP
// feedback (refused, reset, unreachable), an oversized datagram, or a
// read deadline. Receive loops log these at debug level and carry on.
func IsTransientPacketError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH,
			syscall.ENETUNREACH, syscall.EMSGSIZE:
			return true
		}
	}
	return false
}
