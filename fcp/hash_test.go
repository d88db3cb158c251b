// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestFileHashMatchesDirectComputation(t *testing.T) {
	content := "the quick brown fox jumps over the lazy dog"
	got, err := FileHash("conn1", "job1", strings.NewReader(content))
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}

	sum := sha256.Sum256([]byte("conn1-job1" + content))
	want := base64.StdEncoding.EncodeToString(sum[:])

	if got != want {
		t.Errorf("FileHash() = %q, want %q", got, want)
	}
}

func TestFileHashStreamsAcrossBlockBoundaries(t *testing.T) {
	content := strings.Repeat("x", fileHashBlockSize*3+17)
	got, err := FileHash("conn", "id", strings.NewReader(content))
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}

	sum := sha256.Sum256([]byte("conn-id" + content))
	want := base64.StdEncoding.EncodeToString(sum[:])

	if got != want {
		t.Errorf("FileHash() over a multi-block file = %q, want %q", got, want)
	}
}
