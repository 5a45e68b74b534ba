// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/gazelog/lib/archive"
	"github.com/bureau-foundation/gazelog/lib/clock"
	"github.com/bureau-foundation/gazelog/lib/config"
	"github.com/bureau-foundation/gazelog/lib/gaze"
	"github.com/bureau-foundation/gazelog/lib/handoff"
	"github.com/bureau-foundation/gazelog/lib/listener"
	"github.com/bureau-foundation/gazelog/lib/recorder"
	"github.com/bureau-foundation/gazelog/lib/session"
)

// errListenerExited ends a recording whose receive goroutine stopped
// while the session was still meant to be running.
var errListenerExited = errors.New("listener exited before shutdown")

// recording wires one session: the listener publishes into the slot,
// the recorder drains it on every tick.
type recording struct {
	config    *config.Config
	algorithm archive.Algorithm
	clock     clock.Clock
	logger    *slog.Logger

	slot     *handoff.Slot[gaze.Sample]
	listener *listener.Listener
	recorder *recorder.Recorder
}

// startRecording binds the listener and opens the session file. The
// socket is bound first so a busy port never leaves an empty session
// file behind.
func startRecording(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*recording, error) {
	algorithm, err := archive.ParseAlgorithm(cfg.Output.Archive)
	if err != nil {
		return nil, err
	}

	slot := handoff.New[gaze.Sample]()

	lst, err := listener.Listen(ctx, listener.Config{
		Address:         cfg.Listen.Address,
		ReusePort:       cfg.Listen.ReusePort,
		ReadBufferBytes: cfg.Listen.ReadBufferBytes,
	}, slot, clk, logger)
	if err != nil {
		return nil, err
	}

	rec, err := recorder.Open(recorder.Config{
		Directory: cfg.Output.Directory,
		Prefix:    cfg.Output.Prefix,
		Extension: cfg.Output.Extension,
	}, slot, clk, logger)
	if err != nil {
		lst.Stop()
		<-lst.Done()
		return nil, err
	}

	return &recording{
		config:    cfg,
		algorithm: algorithm,
		clock:     clk,
		logger:    logger,
		slot:      slot,
		listener:  lst,
		recorder:  rec,
	}, nil
}

// run ticks the recorder until ctx is cancelled, a write fails, or the
// listener exits on its own.
func (r *recording) run(ctx context.Context) error {
	ticker := r.clock.NewTicker(time.Second / time.Duration(r.config.Tick.RateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.listener.Done():
			// Cancelling ctx also stops the listener.
			if ctx.Err() != nil {
				return nil
			}
			return errListenerExited
		case <-ticker.C:
			if err := r.recorder.Tick(); err != nil {
				return err
			}
		}
	}
}

// finish stops the listener, records the last pending sample, closes
// the session file, and writes the post-session artifacts. runErr is
// the error that ended run, if any; artifacts are skipped after a
// failed run but the file is still closed.
func (r *recording) finish(runErr error) (session.Manifest, error) {
	r.listener.Stop()
	<-r.listener.Done()

	var tickErr error
	if runErr == nil {
		tickErr = r.recorder.Tick()
	}
	summary, closeErr := r.recorder.Close()
	if err := errors.Join(tickErr, closeErr); err != nil {
		return session.Manifest{}, err
	}
	if runErr != nil {
		return session.Manifest{}, nil
	}

	listenerStats := r.listener.Stats()
	slotStats := r.slot.Stats()
	manifest := session.Manifest{
		SessionFile:   filepath.Base(summary.Path),
		ListenAddress: r.listener.LocalAddr().String(),
		Started:       summary.Started,
		Finished:      summary.Finished,
		Rows:          summary.Rows,
		EmptyTicks:    summary.EmptyTicks,
		Datagrams:     listenerStats.Datagrams,
		Bytes:         listenerStats.Bytes,
		Skipped:       listenerStats.Skipped,
		ReadErrors:    listenerStats.ReadErrors,
		Overwritten:   slotStats.Overwritten,
	}

	digest, err := archive.DigestFile(summary.Path)
	if err != nil {
		return manifest, err
	}
	manifest.Digest = digest.String()

	archivePath, err := archive.Compress(summary.Path, r.algorithm)
	if err != nil {
		return manifest, err
	}
	if archivePath != "" {
		manifest.ArchiveFile = filepath.Base(archivePath)
		manifest.ArchiveAlgorithm = string(r.algorithm)
		r.logger.Info("session archived", "archive", archivePath, "algorithm", r.algorithm)
	}

	if r.config.Output.Manifest {
		manifestPath := session.ManifestPath(summary.Path)
		if err := session.Write(manifestPath, manifest); err != nil {
			return manifest, fmt.Errorf("writing session manifest: %w", err)
		}
		r.logger.Info("session manifest written", "manifest", manifestPath)
	}
	return manifest, nil
}
