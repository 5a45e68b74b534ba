// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// gazelog-mock broadcasts synthetic eye tracking datagrams so gazelog
// can be exercised without a headset.
//
// Each frame carries a gaze message (both eyes tracing a slow
// Lissajous figure) and, on blink frames, an eyes-closed message. With
// --bundle both messages travel in one bundle; otherwise they are sent
// as separate datagrams, the way most broadcasters do it.
//
//	gazelog-mock --target 127.0.0.1:9000 --rate 120
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gazelog/lib/clock"
	"github.com/bureau-foundation/gazelog/lib/logging"
	"github.com/bureau-foundation/gazelog/lib/netutil"
	"github.com/bureau-foundation/gazelog/lib/process"
	"github.com/bureau-foundation/gazelog/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		target      string
		rate        int
		duration    time.Duration
		bundle      bool
		blinkEvery  time.Duration
		showVersion bool
		showHelp    bool
	)

	flagSet := pflag.NewFlagSet("gazelog-mock", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&target, "target", "127.0.0.1:9000", "host:port to send datagrams to")
	flagSet.IntVar(&rate, "rate", 120, "frames per second")
	flagSet.DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	flagSet.BoolVar(&bundle, "bundle", false, "send each frame as a single bundle")
	flagSet.DurationVar(&blinkEvery, "blink-every", 4*time.Second, "interval between blinks")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if showHelp {
		fmt.Fprintf(stdout, "Usage: gazelog-mock [flags]\n\nBroadcast synthetic eye tracking datagrams.\n\nFlags:\n%s", flagSet.FlagUsages())
		return nil
	}
	if showVersion {
		version.Print("gazelog-mock")
		return nil
	}
	if rate <= 0 {
		return fmt.Errorf("--rate must be positive, got %d", rate)
	}
	if blinkEvery <= 0 {
		return fmt.Errorf("--blink-every must be positive, got %s", blinkEvery)
	}

	logger := logging.New(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	connection, err := net.Dial("udp", target)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", target, err)
	}
	defer connection.Close()

	source := newGenerator(rate, blinkEvery, bundle)
	logger.Info("broadcasting synthetic eye tracking",
		"target", target,
		"rate", rate,
		"bundle", bundle,
	)

	sent, err := broadcast(ctx, connection, source, clock.Real(), rate)
	logger.Info("broadcast stopped", "frames", source.frame, "datagrams", sent)
	return err
}

// broadcast sends one frame per tick until ctx is done. Returns the
// number of datagrams sent.
func broadcast(ctx context.Context, connection net.Conn, source *generator, clk clock.Clock, rate int) (uint64, error) {
	ticker := clk.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
			for _, datagram := range source.next() {
				if _, err := connection.Write(datagram); err != nil {
					// A refused send only means nobody is listening yet.
					if netutil.IsTransientPacketError(err) {
						continue
					}
					return sent, fmt.Errorf("sending frame %d: %w", source.frame, err)
				}
				sent++
			}
		}
	}
}
