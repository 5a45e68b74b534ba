// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file when --config is
// not given.
const EnvironmentVariable = "GAZELOG_CONFIG"

// Config is the complete gazelog configuration.
type Config struct {
	// Listen configures the UDP receiver.
	Listen ListenConfig `yaml:"listen"`

	// Output configures the session file and its post-session
	// artifacts.
	Output OutputConfig `yaml:"output"`

	// Tick configures the recorder cadence.
	Tick TickConfig `yaml:"tick"`
}

// ListenConfig configures the UDP receiver.
type ListenConfig struct {
	// Address is the host:port to bind. Default: ":9000" (all
	// interfaces).
	Address string `yaml:"address"`

	// ReusePort sets SO_REUSEADDR and SO_REUSEPORT so a second
	// consumer on the same machine can share the port.
	ReusePort bool `yaml:"reuse_port"`

	// ReadBufferBytes sets the socket receive buffer. Zero keeps the
	// system default.
	ReadBufferBytes int `yaml:"read_buffer_bytes"`
}

// OutputConfig configures the session file.
type OutputConfig struct {
	// Directory receives session files. Relative paths resolve
	// against the working directory. Default: ExperimentLogs.
	Directory string `yaml:"directory"`

	// Prefix starts every session file name. Default:
	// EyeTracking_Full.
	Prefix string `yaml:"prefix"`

	// Extension of the session file, without the dot. Default: csv.
	Extension string `yaml:"extension"`

	// Archive selects post-session compression: none, zstd, or lz4.
	// Default: none.
	Archive string `yaml:"archive"`

	// Manifest enables the CBOR session manifest. Default: true.
	Manifest bool `yaml:"manifest"`
}

// TickConfig configures the recorder cadence.
type TickConfig struct {
	// RateHz is the number of recorder ticks per second. Default: 90.
	RateHz int `yaml:"rate_hz"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Address: ":9000",
		},
		Output: OutputConfig{
			Directory: "ExperimentLogs",
			Prefix:    "EyeTracking_Full",
			Extension: "csv",
			Archive:   "none",
			Manifest:  true,
		},
		Tick: TickConfig{
			RateHz: 90,
		},
	}
}

// Load loads configuration from the file named by GAZELOG_CONFIG.
// Fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your gazelog.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Values
// absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// loadFile decodes a single configuration file into c. JSON is a
// subset of YAML, so stripped JSONC goes through the same decoder.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Output.Directory = expandVars(c.Output.Directory, vars)
	c.Output.Prefix = expandVars(c.Output.Prefix, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// SetPort replaces the port of Listen.Address, keeping its host.
func (c *Config) SetPort(port int) {
	host, _, err := net.SplitHostPort(c.Listen.Address)
	if err != nil {
		host = ""
	}
	c.Listen.Address = net.JoinHostPort(host, strconv.Itoa(port))
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, port, err := net.SplitHostPort(c.Listen.Address); err != nil {
		errs = append(errs, fmt.Errorf("listen.address %q: %w", c.Listen.Address, err))
	} else if number, err := strconv.Atoi(port); err != nil || number < 0 || number > 65535 {
		errs = append(errs, fmt.Errorf("listen.address %q: invalid port", c.Listen.Address))
	}

	if c.Listen.ReadBufferBytes < 0 {
		errs = append(errs, fmt.Errorf("listen.read_buffer_bytes must not be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, fmt.Errorf("output.directory is required"))
	}
	if c.Output.Prefix == "" {
		errs = append(errs, fmt.Errorf("output.prefix is required"))
	}
	if strings.ContainsAny(c.Output.Prefix, `/\`) {
		errs = append(errs, fmt.Errorf("output.prefix must not contain path separators"))
	}
	if strings.HasPrefix(c.Output.Extension, ".") {
		errs = append(errs, fmt.Errorf("output.extension must not start with a dot"))
	}

	archiveValues := []string{"", "none", "zstd", "lz4"}
	if !contains(archiveValues, c.Output.Archive) {
		errs = append(errs, fmt.Errorf("output.archive must be one of: none, zstd, lz4"))
	}

	if c.Tick.RateHz <= 0 || c.Tick.RateHz > 1000 {
		errs = append(errs, fmt.Errorf("tick.rate_hz must be between 1 and 1000, got %d", c.Tick.RateHz))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
