// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package listener receives eye tracker datagrams over UDP, decodes
// them, and publishes the latest merged [gaze.Sample].
//
// [Listen] binds synchronously, so a port conflict or bad address is
// returned to the caller before anything runs. It then starts one
// receive goroutine that owns the socket and the cumulative sample:
//
//	UDP read → gaze.Decode → merge into sample → Sink.Offer(copy)
//
// Nothing that arrives on the wire can stop that goroutine. Malformed
// datagrams decode to an empty update, and read errors are logged
// (rate-limited) before the next read. A run of consecutive read
// errors pauses the loop with a short exponential backoff so a socket
// stuck in an error state does not spin a core. Only [Listener.Stop], or
// cancellation of the context passed to Listen, ends the loop: Stop
// closes the socket, which fails the blocked read with net.ErrClosed,
// and the goroutine exits. Decoding is synchronous, so no datagram is
// ever half-applied when the loop ends.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/gazelog/lib/clock"
	"github.com/bureau-foundation/gazelog/lib/gaze"
	"github.com/bureau-foundation/gazelog/lib/netutil"
)

// maxDatagramSize is the largest UDP payload over IPv4.
const maxDatagramSize = 65507

// errorLogInterval limits steady-state read error logging to one
// record per interval; errors in between are counted and reported
// with the next record.
const errorLogInterval = time.Second

// After backoffAfter consecutive read errors the loop sleeps before
// each further read, doubling from minBackoff up to maxBackoff. A
// successful read resets the count.
const (
	backoffAfter = 8
	minBackoff   = time.Millisecond
	maxBackoff   = 100 * time.Millisecond
)

// Sink receives each merged sample. Offer must not block: it runs on
// the receive goroutine between reads. *handoff.Slot[gaze.Sample]
// satisfies it.
type Sink interface {
	Offer(gaze.Sample)
}

// Config controls how the socket is bound. Fixed for the lifetime of
// the Listener.
type Config struct {
	// Address is the UDP address to bind, for example ":9000".
	Address string

	// ReusePort sets SO_REUSEADDR and SO_REUSEPORT before binding so
	// other OSC consumers on the same machine can share the port.
	// Only supported on Linux and the BSDs.
	ReusePort bool

	// ReadBufferBytes sets the kernel receive buffer size. Zero keeps
	// the system default.
	ReadBufferBytes int
}

// Listener owns one UDP socket and its receive goroutine.
type Listener struct {
	conn   net.PacketConn
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger

	// sample is owned by the receive goroutine.
	sample gaze.Sample

	stopping atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}

	datagrams  atomic.Uint64
	bytes      atomic.Uint64
	skipped    atomic.Uint64
	readErrors atomic.Uint64

	// Owned by the receive goroutine.
	lastErrorLog     time.Time
	suppressedErrors uint64
}

// Listen binds the socket described by config and starts the receive
// goroutine. A bind failure is returned immediately and nothing is
// started. Cancelling ctx has the same effect as calling Stop.
func Listen(ctx context.Context, config Config, sink Sink, clk clock.Clock, logger *slog.Logger) (*Listener, error) {
	if sink == nil {
		return nil, fmt.Errorf("listener: nil sink")
	}

	listenConfig := net.ListenConfig{}
	if config.ReusePort {
		control, err := reusePortControl()
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", config.Address, err)
		}
		listenConfig.Control = control
	}

	conn, err := listenConfig.ListenPacket(ctx, "udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", config.Address, err)
	}

	if config.ReadBufferBytes > 0 {
		udpConn, ok := conn.(*net.UDPConn)
		if ok {
			err = udpConn.SetReadBuffer(config.ReadBufferBytes)
		}
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting read buffer on %s: %w", config.Address, err)
		}
	}

	listener := newListener(ctx, conn, sink, clk, logger)
	listener.logger.Info("listening for eye tracking datagrams")
	return listener, nil
}

// newListener takes ownership of an already bound conn and starts the
// receive goroutine on it.
func newListener(ctx context.Context, conn net.PacketConn, sink Sink, clk clock.Clock, logger *slog.Logger) *Listener {
	listener := &Listener{
		conn:    conn,
		sink:    sink,
		clock:   clk,
		logger:  logger.With("listen_address", conn.LocalAddr().String()),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	stopOnCancel := context.AfterFunc(ctx, listener.Stop)
	go func() {
		defer stopOnCancel()
		listener.run()
	}()
	return listener
}

// LocalAddr returns the bound address. Useful when binding port 0.
func (l *Listener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Stop closes the socket, which unblocks the pending read and ends the
// receive goroutine. Safe to call more than once and from any
// goroutine. Does not wait; use Done for that.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.stopping.Store(true)
		close(l.stopped)
		if err := l.conn.Close(); err != nil {
			l.logger.Warn("closing socket", "error", err)
		}
	})
}

// Done is closed when the receive goroutine has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Stats is a snapshot of receive counters.
type Stats struct {
	// Datagrams counts datagrams handed to the decoder.
	Datagrams uint64
	// Bytes counts payload bytes across those datagrams.
	Bytes uint64
	// Skipped counts elements that failed to decode.
	Skipped uint64
	// ReadErrors counts failed reads other than the final one caused
	// by Stop.
	ReadErrors uint64
}

// Stats returns the current receive counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Datagrams:  l.datagrams.Load(),
		Bytes:      l.bytes.Load(),
		Skipped:    l.skipped.Load(),
		ReadErrors: l.readErrors.Load(),
	}
}

func (l *Listener) run() {
	defer close(l.done)

	buffer := make([]byte, maxDatagramSize)
	consecutiveErrors := 0
	for {
		n, _, err := l.conn.ReadFrom(buffer)
		if err != nil {
			if l.stopping.Load() {
				l.logger.Info("listener stopped", "datagrams", l.datagrams.Load())
				return
			}
			if netutil.IsClosedError(err) {
				// Closed underneath us without Stop. Reads can never
				// succeed again, so retrying would spin.
				l.logger.Error("socket closed unexpectedly", "error", err)
				return
			}
			l.readErrors.Add(1)
			l.logReadError(err)
			consecutiveErrors++
			if consecutiveErrors >= backoffAfter && !l.pause(readBackoff(consecutiveErrors)) {
				l.logger.Info("listener stopped", "datagrams", l.datagrams.Load())
				return
			}
			continue
		}
		consecutiveErrors = 0
		if n == 0 {
			continue
		}
		l.handle(buffer[:n])
	}
}

// pause waits d on the injected clock. Returns false if Stop was
// called first.
func (l *Listener) pause(d time.Duration) bool {
	select {
	case <-l.clock.After(d):
		return true
	case <-l.stopped:
		return false
	}
}

// readBackoff returns the pause after the given number of consecutive
// read errors, which is at least backoffAfter.
func readBackoff(consecutiveErrors int) time.Duration {
	shift := min(consecutiveErrors-backoffAfter, 7)
	return min(minBackoff<<shift, maxBackoff)
}

// handle decodes one datagram, merges it into the cumulative sample,
// and publishes a copy. Fields the datagram did not touch keep their
// previous values; Params and RawHex always describe this datagram.
func (l *Listener) handle(datagram []byte) {
	result := gaze.Decode(datagram)

	l.datagrams.Add(1)
	l.bytes.Add(uint64(len(datagram)))
	if result.Skipped > 0 {
		l.skipped.Add(uint64(result.Skipped))
		l.logger.Debug("dropped malformed elements",
			"skipped", result.Skipped,
			"size", len(datagram),
		)
	}

	result.Update.Apply(&l.sample)
	l.sample.Params = result.Params
	l.sample.RawHex = result.RawHex
	l.sample.Seq++
	l.sample.ReceivedAt = l.clock.Now()

	l.sink.Offer(l.sample)
}

func (l *Listener) logReadError(err error) {
	level := slog.LevelWarn
	if netutil.IsTransientPacketError(err) {
		level = slog.LevelDebug
	}

	now := l.clock.Now()
	if !l.lastErrorLog.IsZero() && now.Sub(l.lastErrorLog) < errorLogInterval {
		l.suppressedErrors++
		return
	}
	l.logger.Log(context.Background(), level, "receive failed, continuing",
		"error", err,
		"suppressed", l.suppressedErrors,
	)
	l.lastErrorLog = now
	l.suppressedErrors = 0
}
