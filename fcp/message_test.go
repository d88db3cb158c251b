// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import "testing"

func TestMessageSetPreservesDuplicatesAndOrder(t *testing.T) {
	m := NewMessage("ClientPut").Set("URI", "CHK@a").Set("Metadata.ContentType", "text/plain").Set("URI", "CHK@b")

	got := m.GetAll("URI")
	if len(got) != 2 || got[0] != "CHK@a" || got[1] != "CHK@b" {
		t.Errorf("GetAll(URI) = %v, want [CHK@a CHK@b]", got)
	}
	if m.Fields[1].Key != "Metadata.ContentType" {
		t.Errorf("field order not preserved: %v", m.Fields)
	}
}

func TestMessageReplaceRemovesAllPriorOccurrences(t *testing.T) {
	m := NewMessage("AddPeer").Set("Flag", "a").Set("Flag", "b").Replace("Flag", "c")
	got := m.GetAll("Flag")
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("GetAll(Flag) after Replace = %v, want [c]", got)
	}
}

func TestMessageEqualIgnoresFieldOrder(t *testing.T) {
	a := NewMessage("Peer").Set("Identifier", "x").Set("NodeIdentifier", "peer1")
	b := NewMessage("Peer").Set("NodeIdentifier", "peer1").Set("Identifier", "x")
	if !a.Equal(b) {
		t.Errorf("a.Equal(b) = false, want true for reordered-but-equal fields")
	}
}

func TestMessageEqualDistinguishesDuplicateCounts(t *testing.T) {
	a := NewMessage("X").Set("K", "v")
	b := NewMessage("X").Set("K", "v").Set("K", "v")
	if a.Equal(b) {
		t.Errorf("a.Equal(b) = true, want false: b has an extra duplicate field")
	}
}

func TestMessageWithPayloadSetsDataLength(t *testing.T) {
	m := NewMessage("ClientPut").WithPayload([]byte("hello"))
	got, ok := m.Get("DataLength")
	if !ok || got != "5" {
		t.Errorf("DataLength = %q, ok=%v, want 5, true", got, ok)
	}
}
