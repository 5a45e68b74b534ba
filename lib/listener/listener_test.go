// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/gazelog/lib/clock"
	"github.com/bureau-foundation/gazelog/lib/gaze"
	"github.com/bureau-foundation/gazelog/lib/osc"
	"github.com/bureau-foundation/gazelog/lib/testutil"
)

const waitTimeout = 5 * time.Second

// channelSink records every published sample in order.
type channelSink struct {
	samples chan gaze.Sample
}

func newChannelSink() *channelSink {
	return &channelSink{samples: make(chan gaze.Sample, 64)}
}

func (s *channelSink) Offer(sample gaze.Sample) { s.samples <- sample }

func (s *channelSink) next(t *testing.T) gaze.Sample {
	t.Helper()
	var receive <-chan gaze.Sample = s.samples
	return testutil.RequireReceive(t, receive, waitTimeout, "waiting for published sample")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startListener(t *testing.T, sink Sink) *Listener {
	t.Helper()
	listener, err := Listen(context.Background(), Config{Address: "127.0.0.1:0"}, sink,
		clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), testLogger())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() {
		listener.Stop()
		testutil.RequireClosed(t, listener.Done(), waitTimeout, "listener exit")
	})
	return listener
}

func TestListenerPublishesDecodedSample(t *testing.T) {
	sink := newChannelSink()
	listener := startListener(t, sink)

	testutil.SendDatagram(t, listener.LocalAddr(),
		osc.AppendMessage(nil, gaze.AddressPitchYaw, 0.10, -0.20, 0.30, -0.40))

	sample := sink.next(t)
	if sample.LeftGazeX != 0.10 || sample.LeftGazeY != -0.20 || sample.RightGazeX != 0.30 || sample.RightGazeY != -0.40 {
		t.Errorf("gaze = %+v", sample)
	}
	if sample.Seq != 1 {
		t.Errorf("Seq = %d, want 1", sample.Seq)
	}
	if sample.Params != "[Gaze4:0.100|-0.200|0.300|-0.400]" {
		t.Errorf("Params = %q", sample.Params)
	}
}

func TestListenerMergesAcrossDatagrams(t *testing.T) {
	sink := newChannelSink()
	listener := startListener(t, sink)

	testutil.SendDatagram(t, listener.LocalAddr(), osc.AppendMessage(nil, gaze.AddressPitchYaw, 1, 2, 3, 4))
	sink.next(t)

	testutil.SendDatagram(t, listener.LocalAddr(), osc.AppendMessage(nil, gaze.AddressEyesClosed, 0.5))
	sample := sink.next(t)

	if sample.LeftGazeX != 1 || sample.RightGazeY != 4 {
		t.Errorf("gaze from the first datagram lost: %+v", sample)
	}
	if sample.LeftOpenness != 0.5 || sample.RightOpenness != 0.5 {
		t.Errorf("openness = %v/%v", sample.LeftOpenness, sample.RightOpenness)
	}
	if sample.Params != "[Blink:0.500]" {
		t.Errorf("Params should describe only the latest datagram, got %q", sample.Params)
	}
}

func TestListenerSurvivesGarbage(t *testing.T) {
	sink := newChannelSink()
	listener := startListener(t, sink)

	garbage := [][]byte{
		{0xff},
		[]byte("#bundle\x00"),
		[]byte("no terminator at all"),
		append([]byte("#bundle\x00\x00\x00\x00\x00\x00\x00\x00\x00"), 0x7f, 0xff, 0xff, 0xff),
	}
	for _, datagram := range garbage {
		testutil.SendDatagram(t, listener.LocalAddr(), datagram)
		sample := sink.next(t)
		if sample.Params != "" {
			t.Errorf("garbage %x produced params %q", datagram, sample.Params)
		}
	}

	testutil.SendDatagram(t, listener.LocalAddr(), osc.AppendMessage(nil, gaze.AddressEyesClosed, 0.25))
	sample := sink.next(t)
	if sample.LeftOpenness != 0.75 {
		t.Errorf("LeftOpenness = %v after garbage, want 0.75", sample.LeftOpenness)
	}
	if sample.Seq != uint64(len(garbage)+1) {
		t.Errorf("Seq = %d, want %d", sample.Seq, len(garbage)+1)
	}
	if stats := listener.Stats(); stats.Skipped == 0 {
		t.Errorf("expected skipped elements to be counted, got %+v", stats)
	}
}

func TestListenerStop(t *testing.T) {
	listener, err := Listen(context.Background(), Config{Address: "127.0.0.1:0"}, newChannelSink(),
		clock.Real(), testLogger())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	listener.Stop()
	listener.Stop()
	testutil.RequireClosed(t, listener.Done(), waitTimeout, "listener exit after Stop")
	if stats := listener.Stats(); stats.ReadErrors != 0 {
		t.Errorf("Stop counted as a read error: %+v", stats)
	}
}

func TestListenerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	listener, err := Listen(ctx, Config{Address: "127.0.0.1:0"}, newChannelSink(), clock.Real(), testLogger())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	cancel()
	testutil.RequireClosed(t, listener.Done(), waitTimeout, "listener exit after cancel")
}

func TestListenBindFailure(t *testing.T) {
	first := startListener(t, newChannelSink())

	_, err := Listen(context.Background(), Config{Address: first.LocalAddr().String()}, newChannelSink(),
		clock.Real(), testLogger())
	if err == nil {
		t.Fatal("expected bind failure on an occupied port")
	}
}

func TestListenInvalidAddress(t *testing.T) {
	_, err := Listen(context.Background(), Config{Address: "127.0.0.1:notaport"}, newChannelSink(),
		clock.Real(), testLogger())
	if err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestListenReusePort(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("SO_REUSEPORT semantics differ outside Linux")
	}
	config := Config{Address: "127.0.0.1:0", ReusePort: true}
	first, err := Listen(context.Background(), config, newChannelSink(), clock.Real(), testLogger())
	if err != nil {
		t.Fatalf("first Listen: %v", err)
	}
	defer first.Stop()

	config.Address = first.LocalAddr().String()
	second, err := Listen(context.Background(), config, newChannelSink(), clock.Real(), testLogger())
	if err != nil {
		t.Fatalf("second Listen with reuse_port: %v", err)
	}
	second.Stop()
}

type readResult struct {
	data []byte
	err  error
}

// scriptedConn is a net.PacketConn whose reads are supplied one at a
// time by the test. After Close, reads fail with net.ErrClosed.
type scriptedConn struct {
	reads     chan readResult
	closed    chan struct{}
	closeOnce sync.Once
}

func newScriptedConn() *scriptedConn {
	return &scriptedConn{reads: make(chan readResult), closed: make(chan struct{})}
}

// deliver hands one read result to the receive loop and returns once
// the loop has taken it.
func (c *scriptedConn) deliver(t *testing.T, result readResult) {
	t.Helper()
	select {
	case c.reads <- result:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out delivering read result %+v", result)
	}
}

func (c *scriptedConn) ReadFrom(buffer []byte) (int, net.Addr, error) {
	select {
	case result := <-c.reads:
		if result.err != nil {
			return 0, nil, result.err
		}
		return copy(buffer, result.data), c.LocalAddr(), nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *scriptedConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *scriptedConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
}

func (c *scriptedConn) WriteTo([]byte, net.Addr) (int, error) { return 0, errors.ErrUnsupported }
func (c *scriptedConn) SetDeadline(time.Time) error           { return nil }
func (c *scriptedConn) SetReadDeadline(time.Time) error       { return nil }
func (c *scriptedConn) SetWriteDeadline(time.Time) error      { return nil }

// logRecords decodes JSON log output and returns the records whose
// msg equals message.
func logRecords(t *testing.T, output []byte, message string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(output), []byte("\n")) {
		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("decoding log line %q: %v", line, err)
		}
		if record["msg"] == message {
			records = append(records, record)
		}
	}
	return records
}

func TestListenerContinuesAfterReadError(t *testing.T) {
	conn := newScriptedConn()
	sink := newChannelSink()
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var output bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&output, &slog.HandlerOptions{Level: slog.LevelDebug}))
	listener := newListener(context.Background(), conn, sink, fakeClock, logger)

	failure := errors.New("receive buffer exhausted")
	for range 3 {
		conn.deliver(t, readResult{err: failure})
	}
	conn.deliver(t, readResult{data: osc.AppendMessage(nil, gaze.AddressEyesClosed, 0.25)})

	sample := sink.next(t)
	if sample.LeftOpenness != 0.75 || sample.Seq != 1 {
		t.Errorf("sample after read errors = %+v", sample)
	}
	if stats := listener.Stats(); stats.ReadErrors != 3 || stats.Datagrams != 1 {
		t.Errorf("stats = %+v, want 3 read errors and 1 datagram", stats)
	}

	// Once the interval has passed, the next error is logged along
	// with the count of the ones held back.
	fakeClock.Advance(errorLogInterval)
	conn.deliver(t, readResult{err: failure})
	conn.deliver(t, readResult{data: osc.AppendMessage(nil, gaze.AddressEyesClosed, 0.5)})
	if sample := sink.next(t); sample.Seq != 2 {
		t.Errorf("Seq = %d, want 2", sample.Seq)
	}

	listener.Stop()
	testutil.RequireClosed(t, listener.Done(), waitTimeout, "listener exit")
	if stats := listener.Stats(); stats.ReadErrors != 4 {
		t.Errorf("ReadErrors = %d, want 4", stats.ReadErrors)
	}

	records := logRecords(t, output.Bytes(), "receive failed, continuing")
	if len(records) != 2 {
		t.Fatalf("got %d read error records, want 2: %s", len(records), output.String())
	}
	if records[0]["error"] != failure.Error() || records[0]["suppressed"] != float64(0) {
		t.Errorf("first record = %v", records[0])
	}
	if records[1]["suppressed"] != float64(2) {
		t.Errorf("second record suppressed = %v, want 2", records[1]["suppressed"])
	}
}

func TestListenerBacksOffOnPersistentReadErrors(t *testing.T) {
	conn := newScriptedConn()
	sink := newChannelSink()
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	listener := newListener(context.Background(), conn, sink, fakeClock, testLogger())

	failure := errors.New("receive buffer exhausted")
	for range backoffAfter {
		conn.deliver(t, readResult{err: failure})
	}

	// The loop is now parked on the clock instead of reading.
	fakeClock.WaitForTimers(1)
	select {
	case conn.reads <- readResult{err: failure}:
		t.Fatal("receive loop read again without backing off")
	case <-time.After(20 * time.Millisecond):
	}

	fakeClock.Advance(minBackoff)
	conn.deliver(t, readResult{data: osc.AppendMessage(nil, gaze.AddressPitchYaw, 1, 2, 3, 4)})
	if sample := sink.next(t); sample.LeftGazeX != 1 {
		t.Errorf("sample after backoff = %+v", sample)
	}
	if stats := listener.Stats(); stats.ReadErrors != backoffAfter {
		t.Errorf("ReadErrors = %d, want %d", stats.ReadErrors, backoffAfter)
	}

	// The successful read reset the run, so it takes another full run
	// of errors to back off again. Stop interrupts the pause without
	// the clock moving.
	for range backoffAfter {
		conn.deliver(t, readResult{err: failure})
	}
	fakeClock.WaitForTimers(1)
	listener.Stop()
	testutil.RequireClosed(t, listener.Done(), waitTimeout, "listener exit during backoff")
}

func TestReadBackoff(t *testing.T) {
	tests := map[int]time.Duration{
		backoffAfter:      time.Millisecond,
		backoffAfter + 1:  2 * time.Millisecond,
		backoffAfter + 6:  64 * time.Millisecond,
		backoffAfter + 7:  maxBackoff,
		backoffAfter + 90: maxBackoff,
	}
	for consecutive, want := range tests {
		if got := readBackoff(consecutive); got != want {
			t.Errorf("readBackoff(%d) = %v, want %v", consecutive, got, want)
		}
	}
}
