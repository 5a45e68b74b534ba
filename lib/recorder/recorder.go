// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder appends eye tracking samples to a per-session CSV
// file, one row per host tick.
//
// The host calls [Recorder.Tick] at its own cadence (once per
// rendered frame in the simulator, or from a ticker in the standalone
// binary). Each Tick takes whatever sample is pending in the handoff
// slot; when one is pending, exactly one row is appended, and when
// none is pending, nothing is written. Samples published between two
// ticks are therefore collapsed to the latest one.
//
// A session file is created once with a fixed header and is strictly
// append-only afterwards. The first write error ends the session:
// every later Tick returns the same error.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/gazelog/lib/clock"
	"github.com/bureau-foundation/gazelog/lib/gaze"
)

// Header is the first line of every session file.
const Header = "Time,LeftGazeX,LeftGazeY,RightGazeX,RightGazeY,LeftOpenness,RightOpenness,AllParameters,RawHex\n"

// timestampLayout names session files: yyyy-MM-dd_HH-mm-ss.
const timestampLayout = "2006-01-02_15-04-05"

// ErrClosed is returned by Tick after Close.
var ErrClosed = errors.New("recorder: closed")

// Source yields the pending sample, if any, and clears it.
// *handoff.Slot[gaze.Sample] satisfies it.
type Source interface {
	Take() (gaze.Sample, bool)
}

// Config locates the session file.
type Config struct {
	// Directory receives the session file. Created if missing.
	Directory string

	// Prefix starts the file name: <Prefix>_<timestamp>.<Extension>.
	Prefix string

	// Extension is the file extension without the dot. Defaults to
	// "csv".
	Extension string
}

// Recorder owns one session file.
type Recorder struct {
	source Source
	clock  clock.Clock
	logger *slog.Logger

	path    string
	file    *os.File
	started time.Time

	// row is reused across ticks.
	row []byte

	rows       uint64
	emptyTicks uint64
	err        error
}

// Open creates the session file for a recording that starts now and
// writes the header. The file must not already exist: a session file
// is never truncated or reused.
func Open(config Config, source Source, clk clock.Clock, logger *slog.Logger) (*Recorder, error) {
	if config.Prefix == "" {
		return nil, fmt.Errorf("recorder: empty file prefix")
	}
	extension := config.Extension
	if extension == "" {
		extension = "csv"
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", config.Directory, err)
	}

	started := clk.Now()
	name := fmt.Sprintf("%s_%s.%s", config.Prefix, started.Format(timestampLayout), extension)
	path := filepath.Join(config.Directory, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating session file: %w", err)
	}
	if _, err := file.WriteString(Header); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing header to %s: %w", path, err)
	}

	logger.Info("recording session started", "path", path)
	return &Recorder{
		source:  source,
		clock:   clk,
		logger:  logger,
		path:    path,
		file:    file,
		started: started,
	}, nil
}

// Path returns the session file path.
func (r *Recorder) Path() string {
	return r.path
}

// Tick drains the source and appends one row if a sample was pending.
// Returns the write error that ended the session, if any, on this and
// every later call.
func (r *Recorder) Tick() error {
	if r.err != nil {
		return r.err
	}
	if r.file == nil {
		return ErrClosed
	}

	sample, ok := r.source.Take()
	if !ok {
		r.emptyTicks++
		return nil
	}

	elapsed := r.clock.Now().Sub(r.started).Seconds()
	r.row = AppendRow(r.row[:0], elapsed, sample)
	if _, err := r.file.Write(r.row); err != nil {
		r.err = fmt.Errorf("appending row to %s: %w", r.path, err)
		r.logger.Error("recording session failed", "path", r.path, "rows", r.rows, "error", err)
		return r.err
	}
	r.rows++
	return nil
}

// Summary describes a finished session.
type Summary struct {
	Path       string
	Started    time.Time
	Finished   time.Time
	Rows       uint64
	EmptyTicks uint64
}

// Close syncs and closes the session file and returns the session
// summary. Calling Close again returns the same summary and
// ErrClosed.
func (r *Recorder) Close() (Summary, error) {
	summary := Summary{
		Path:       r.path,
		Started:    r.started,
		Finished:   r.clock.Now(),
		Rows:       r.rows,
		EmptyTicks: r.emptyTicks,
	}
	if r.file == nil {
		return summary, ErrClosed
	}

	file := r.file
	r.file = nil
	syncErr := file.Sync()
	closeErr := file.Close()
	if err := errors.Join(syncErr, closeErr); err != nil {
		return summary, fmt.Errorf("closing session file %s: %w", r.path, err)
	}

	r.logger.Info("recording session finished",
		"path", r.path,
		"rows", r.rows,
		"empty_ticks", r.emptyTicks,
	)
	return summary, nil
}
