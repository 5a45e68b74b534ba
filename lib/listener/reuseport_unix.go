// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package listener

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// reusePortControl returns a ListenConfig.Control hook that lets
// several processes bind the same UDP port. Each gets its own copy of
// broadcast and multicast datagrams; unicast datagrams go to one of
// them.
func reusePortControl() (func(network, address string, raw syscall.RawConn) error, error) {
	return func(network, address string, raw syscall.RawConn) error {
		var sockoptErr error
		err := raw.Control(func(fd uintptr) {
			if sockoptErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockoptErr != nil {
				sockoptErr = fmt.Errorf("setting SO_REUSEADDR: %w", sockoptErr)
				return
			}
			if sockoptErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); sockoptErr != nil {
				sockoptErr = fmt.Errorf("setting SO_REUSEPORT: %w", sockoptErr)
			}
		})
		if err != nil {
			return err
		}
		return sockoptErr
	}, nil
}
