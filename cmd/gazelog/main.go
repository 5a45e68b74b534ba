// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// gazelog records eye tracking telemetry broadcast over UDP into a
// per-session CSV file.
//
// A headset-side broadcaster sends OSC-style datagrams carrying gaze
// pitch/yaw for both eyes and an eyes-closed amount. gazelog decodes
// every datagram as it arrives, keeps a cumulative sample, and appends
// one CSV row per tick (90 per second by default) whenever a new
// sample arrived since the previous tick. On SIGINT or SIGTERM it
// stops the receiver, writes the last pending sample, closes the file,
// and finishes the session: optional zstd or lz4 archive, BLAKE3
// digest, and a CBOR manifest next to the CSV.
//
// Configuration comes from --config, or GAZELOG_CONFIG, or built-in
// defaults, in that order. --port, --prefix, --directory, --rate,
// --archive, and --reuse-port override the file.
//
// --inspect prints an existing session manifest in CBOR diagnostic
// notation and exits.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gazelog/lib/clock"
	"github.com/bureau-foundation/gazelog/lib/config"
	"github.com/bureau-foundation/gazelog/lib/logging"
	"github.com/bureau-foundation/gazelog/lib/process"
	"github.com/bureau-foundation/gazelog/lib/session"
	"github.com/bureau-foundation/gazelog/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// options holds the parsed command line.
type options struct {
	configPath  string
	logLevel    string
	inspectPath string
	showVersion bool
	showHelp    bool

	port      int
	prefix    string
	directory string
	rate      int
	archive   string
	reusePort bool

	flagSet *pflag.FlagSet
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("gazelog", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", "", "path to gazelog.yaml (default: $GAZELOG_CONFIG, else built-in defaults)")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&opts.inspectPath, "inspect", "", "print a session manifest in CBOR diagnostic notation and exit")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&opts.showHelp, "help", "h", false, "show help")

	flagSet.IntVar(&opts.port, "port", 9000, "UDP port to listen on (overrides listen.address port)")
	flagSet.StringVar(&opts.prefix, "prefix", "", "session file name prefix (overrides output.prefix)")
	flagSet.StringVar(&opts.directory, "directory", "", "session directory (overrides output.directory)")
	flagSet.IntVar(&opts.rate, "rate", 90, "recorder ticks per second (overrides tick.rate_hz)")
	flagSet.StringVar(&opts.archive, "archive", "", "post-session compression: none, zstd, or lz4 (overrides output.archive)")
	flagSet.BoolVar(&opts.reusePort, "reuse-port", false, "share the UDP port with other consumers (overrides listen.reuse_port)")
	opts.flagSet = flagSet
	return flagSet
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}
	flagSet := newFlagSet(opts)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			opts.showHelp = true
			return opts, nil
		}
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, nil
}

// loadConfig resolves the configuration file, applies flag overrides,
// and validates the result.
func (o *options) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case o.configPath != "":
		cfg, err = config.LoadFile(o.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	changed := o.flagSet.Changed
	if changed("port") {
		cfg.SetPort(o.port)
	}
	if changed("prefix") {
		cfg.Output.Prefix = o.prefix
	}
	if changed("directory") {
		cfg.Output.Directory = o.directory
	}
	if changed("rate") {
		cfg.Tick.RateHz = o.rate
	}
	if changed("archive") {
		cfg.Output.Archive = o.archive
	}
	if changed("reuse-port") {
		cfg.Listen.ReusePort = o.reusePort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	if opts.showHelp {
		fmt.Fprintf(stdout, "Usage: gazelog [flags]\n\nRecord eye tracking telemetry from UDP into a CSV session file.\n\nFlags:\n%s", opts.flagSet.FlagUsages())
		return nil
	}
	if opts.showVersion {
		version.Print("gazelog")
		return nil
	}
	if opts.inspectPath != "" {
		text, err := session.Describe(opts.inspectPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, text)
		return nil
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("gazelog starting",
		"version", version.Info(),
		"listen_address", cfg.Listen.Address,
		"directory", cfg.Output.Directory,
		"rate_hz", cfg.Tick.RateHz,
		"archive", cfg.Output.Archive,
	)

	recording, err := startRecording(ctx, cfg, clock.Real(), logger)
	if err != nil {
		return err
	}
	runErr := recording.run(ctx)
	manifest, finishErr := recording.finish(runErr)
	if runErr != nil {
		return runErr
	}
	if finishErr != nil {
		return finishErr
	}

	logger.Info("session complete",
		"session_file", manifest.SessionFile,
		"rows", manifest.Rows,
		"datagrams", manifest.Datagrams,
		"blake3", manifest.Digest,
	)
	return nil
}
