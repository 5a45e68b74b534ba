// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
)

func writeSession(t *testing.T) (string, []byte) {
	t.Helper()
	var contents bytes.Buffer
	contents.WriteString("Time,LeftGazeX,LeftGazeY,RightGazeX,RightGazeY,LeftOpenness,RightOpenness,AllParameters,RawHex\n")
	for i := range 500 {
		contents.WriteString("0.0111,0.1000,-0.2000,0.3000,-0.4000,1.0000,1.0000,[Gaze4:0.100|-0.200|0.300|-0.400],2F747261636B696E67\n")
		if i%7 == 0 {
			contents.WriteString("0.0222,0.1000,-0.2000,0.3000,-0.4000,0.7500,0.7500,[Blink:0.250],2F747261636B\n")
		}
	}
	path := filepath.Join(t.TempDir(), "session.csv")
	if err := os.WriteFile(path, contents.Bytes(), 0o644); err != nil {
		t.Fatalf("writing session: %v", err)
	}
	return path, contents.Bytes()
}

func TestCompressRoundTrip(t *testing.T) {
	for _, algorithm := range []Algorithm{Zstd, LZ4} {
		t.Run(string(algorithm), func(t *testing.T) {
			path, original := writeSession(t)

			archivePath, err := Compress(path, algorithm)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if archivePath != path+algorithm.Extension() {
				t.Errorf("archive path = %q", archivePath)
			}
			if _, err := os.Stat(archivePath + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temporary archive left behind: %v", err)
			}

			info, err := os.Stat(archivePath)
			if err != nil {
				t.Fatalf("stat archive: %v", err)
			}
			if info.Size() >= int64(len(original)) {
				t.Errorf("archive (%d bytes) not smaller than session (%d bytes)", info.Size(), len(original))
			}

			reader, err := Open(archivePath, algorithm)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer reader.Close()
			decompressed, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("reading archive: %v", err)
			}
			if !bytes.Equal(decompressed, original) {
				t.Error("decompressed archive differs from the session file")
			}

			// The session file itself is untouched.
			after, err := os.ReadFile(path)
			if err != nil || !bytes.Equal(after, original) {
				t.Errorf("session file modified (err=%v)", err)
			}
		})
	}
}

func TestCompressNone(t *testing.T) {
	path, _ := writeSession(t)
	archivePath, err := Compress(path, None)
	if err != nil || archivePath != "" {
		t.Fatalf("Compress(None) = %q, %v", archivePath, err)
	}
}

func TestDigestFile(t *testing.T) {
	path, original := writeSession(t)
	digest, err := DigestFile(path)
	if err != nil {
		t.Fatalf("DigestFile: %v", err)
	}
	want := blake3.Sum256(original)
	if digest != Digest(want) {
		t.Errorf("digest = %s, want %x", digest, want)
	}
	if len(digest.String()) != 64 {
		t.Errorf("String() = %q", digest.String())
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{"": None, "none": None, "zstd": Zstd, "lz4": LZ4}
	for input, want := range tests {
		got, err := ParseAlgorithm(input)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("gzip"); err == nil || !strings.Contains(err.Error(), "gzip") {
		t.Errorf("ParseAlgorithm(gzip) error = %v", err)
	}
}
