// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriteReadRoundTripNoPayload(t *testing.T) {
	original := NewMessage("ClientHello").Set("Name", "alice").Set("ExpectedVersion", "2.0")

	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, err := ReadMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !original.Equal(got) {
		t.Errorf("round trip mismatch: got %v, want %v", got, original)
	}
}

func TestWriteReadRoundTripWithPayload(t *testing.T) {
	payload := []byte("hello world")
	original := NewMessage("ClientPut").
		Set("URI", "CHK@").
		Set("Identifier", "job1").
		Set("UploadFrom", "direct").
		WithPayload(payload)

	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, err := ReadMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("payload = %q, want %q", got.Payload, payload)
	}
	if !original.Equal(got) {
		t.Errorf("round trip mismatch: got %v, want %v", got, original)
	}
}

func TestWriteMessageRejectsNewlineInValue(t *testing.T) {
	m := NewMessage("AddPeer").Set("URL", "bad\nvalue")
	var buf bytes.Buffer
	err := WriteMessage(&buf, m)
	if err == nil {
		t.Fatal("expected error for newline in field value, got nil")
	}
	var badArg *BadArgumentError
	if !errors.As(err, &badArg) {
		t.Errorf("err = %v, want a *BadArgumentError in its chain", err)
	}
}

func TestReadMessageAcceptsEndAsFieldTerminator(t *testing.T) {
	raw := "Peer\nNodeIdentifier=abc\nEnd\n"
	got, err := ReadMessage(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Header != "Peer" {
		t.Errorf("Header = %q, want Peer", got.Header)
	}
	if v, _ := got.Get("NodeIdentifier"); v != "abc" {
		t.Errorf("NodeIdentifier = %q, want abc", v)
	}
}

func TestReadMessageTruncatedPayloadFails(t *testing.T) {
	raw := "ClientPut\nDataLength=10\nData\nabc"
	_, err := ReadMessage(bufio.NewReader(strings.NewReader(raw)))
	if err == nil {
		t.Fatal("expected error for truncated payload, got nil")
	}
}

func TestReadMessageMissingDataLengthIsMalformed(t *testing.T) {
	raw := "ClientPut\nData\nabc"
	_, err := ReadMessage(bufio.NewReader(strings.NewReader(raw)))
	var malformed *MalformedFrameError
	if !errors.As(err, &malformed) {
		t.Errorf("err = %v, want a *MalformedFrameError in its chain", err)
	}
}

func TestReadMessageToleratesCRLF(t *testing.T) {
	raw := "NodeHello\r\nFCPVersion=2.0\r\nEndMessage\r\n"
	got, err := ReadMessage(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if v, _ := got.Get("FCPVersion"); v != "2.0" {
		t.Errorf("FCPVersion = %q, want 2.0", v)
	}
}
