// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/gazelog/lib/codec"
)

// ManifestSuffix is appended to the session file path to name its
// manifest.
const ManifestSuffix = ".manifest.cbor"

// ManifestPath returns the manifest path for a session file.
func ManifestPath(sessionPath string) string {
	return sessionPath + ManifestSuffix
}

// Manifest summarizes one recording session.
type Manifest struct {
	// SessionFile is the base name of the CSV file.
	SessionFile string `cbor:"session_file"`

	// ListenAddress is the local UDP address the listener bound.
	ListenAddress string `cbor:"listen_address"`

	Started  time.Time `cbor:"started"`
	Finished time.Time `cbor:"finished"`

	// Rows is the number of data rows in the session file (excluding
	// the header). EmptyTicks counts ticks that found nothing pending.
	Rows       uint64 `cbor:"rows"`
	EmptyTicks uint64 `cbor:"empty_ticks"`

	// Listener traffic counters.
	Datagrams  uint64 `cbor:"datagrams"`
	Bytes      uint64 `cbor:"bytes"`
	Skipped    uint64 `cbor:"skipped_elements"`
	ReadErrors uint64 `cbor:"read_errors"`

	// Overwritten counts samples replaced in the handoff slot before
	// the recorder took them.
	Overwritten uint64 `cbor:"overwritten"`

	// Digest is the lowercase hex BLAKE3-256 of the session file.
	Digest string `cbor:"blake3"`

	// ArchiveFile and ArchiveAlgorithm are set when a compressed copy
	// was written.
	ArchiveFile      string `cbor:"archive_file,omitempty"`
	ArchiveAlgorithm string `cbor:"archive_algorithm,omitempty"`
}

// Write atomically writes a manifest to path. The parent directory
// must already exist.
func Write(path string, manifest Manifest) error {
	data, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding session manifest: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temporary manifest: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary manifest: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary manifest: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary manifest: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming manifest into place: %w", err)
	}

	// The rename is durable only once the directory entry is flushed.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Read reads and decodes a manifest. When the file does not exist the
// returned error wraps os.ErrNotExist.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return manifest, nil
}

// Describe renders the manifest file at path in CBOR diagnostic
// notation.
func Describe(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := codec.Diagnose(data)
	if err != nil {
		return "", fmt.Errorf("diagnosing manifest %s: %w", path, err)
	}
	return text, nil
}
