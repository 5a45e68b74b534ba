// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive finishes a recorded session: it digests the session
// file with BLAKE3 and optionally writes a compressed copy next to it.
//
// The session file itself is never modified or removed. Compression
// writes a sibling file (<path>.zst or <path>.lz4) through a temporary
// name and renames it into place, so a crash mid-compression never
// leaves a truncated archive under the final name.
//
// zstd suits the CSV well: the RawHex column repeats the same address
// strings in every row. lz4 trades ratio for speed on slow machines.
package archive

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Algorithm selects the compression applied to a finished session.
type Algorithm string

const (
	// None keeps only the uncompressed session file.
	None Algorithm = "none"
	// Zstd writes a zstd frame at the default level.
	Zstd Algorithm = "zstd"
	// LZ4 writes an lz4 frame.
	LZ4 Algorithm = "lz4"
)

// ParseAlgorithm parses a configuration value. The empty string means
// None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", None:
		return None, nil
	case Zstd:
		return Zstd, nil
	case LZ4:
		return LZ4, nil
	default:
		return "", fmt.Errorf("unknown archive algorithm %q (want none, zstd, or lz4)", name)
	}
}

// Extension returns the file suffix appended by Compress, including
// the dot. Empty for None.
func (a Algorithm) Extension() string {
	switch a {
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

// Digest is a BLAKE3-256 hash of a session file.
type Digest [32]byte

// String returns the digest in lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// DigestFile hashes the file at path.
func DigestFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for digest: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// Compress writes a compressed copy of the file at path and returns
// the archive path. For None it does nothing and returns "".
func Compress(path string, algorithm Algorithm) (string, error) {
	if algorithm == None {
		return "", nil
	}

	source, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for archive: %w", path, err)
	}
	defer source.Close()

	archivePath := path + algorithm.Extension()
	temporaryPath := archivePath + ".tmp"
	destination, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating temporary archive: %w", err)
	}

	if err := compressInto(destination, source, algorithm); err != nil {
		destination.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("compressing %s with %s: %w", path, algorithm, err)
	}
	if err := destination.Sync(); err != nil {
		destination.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("syncing temporary archive: %w", err)
	}
	if err := destination.Close(); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("closing temporary archive: %w", err)
	}
	if err := os.Rename(temporaryPath, archivePath); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("renaming archive into place: %w", err)
	}
	return archivePath, nil
}

func compressInto(destination io.Writer, source io.Reader, algorithm Algorithm) error {
	var writer io.WriteCloser
	switch algorithm {
	case Zstd:
		encoder, err := zstd.NewWriter(destination, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		writer = encoder
	case LZ4:
		writer = lz4.NewWriter(destination)
	default:
		return fmt.Errorf("unsupported archive algorithm %q", algorithm)
	}

	if _, err := io.Copy(writer, source); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// Open returns a reader that decompresses the archive at path.
func Open(path string, algorithm Algorithm) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch algorithm {
	case Zstd:
		decoder, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening zstd archive %s: %w", path, err)
		}
		return &readCloser{Reader: decoder, close: func() error {
			decoder.Close()
			return file.Close()
		}}, nil
	case LZ4:
		return &readCloser{Reader: lz4.NewReader(file), close: file.Close}, nil
	case None:
		return file, nil
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported archive algorithm %q", algorithm)
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }
