// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for gazelog packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests that wait on a receive goroutine fail with a
// message instead of hanging. They are the only place in the test
// suite that uses real wall-clock timeouts.
//
// [SendDatagram] writes one UDP datagram to a listener under test.
//
// All helpers call t.Fatalf on failure.
package testutil
