// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the
// recorder and the tick driver.
//
// Two things in gazelog depend on time: the wall-clock timestamp that
// names each session file and starts the Time column, and the tick
// cadence that stands in for the host's per-frame update when the
// recorder runs as a standalone binary. Both go through [Clock] so
// tests can pin the file name and step the cadence deterministically:
//
//	c := clock.Fake(time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local))
//	rec, _ := recorder.Open(cfg, slot, c, logger)
//	c.Advance(250 * time.Millisecond) // the next row's Time is 0.2500
//
// Production code passes Real().
package clock
