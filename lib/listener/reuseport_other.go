// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package listener

import (
	"errors"
	"syscall"
)

func reusePortControl() (func(network, address string, raw syscall.RawConn) error, error) {
	return nil, errors.New("reuse_port is not supported on this platform")
}
