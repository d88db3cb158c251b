// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import "testing"

func TestClassifyUnknownHeader(t *testing.T) {
	if k := Classify("SomethingMadeUp"); k != KindUnknown {
		t.Errorf("Classify(SomethingMadeUp) = %v, want KindUnknown", k)
	}
}

func TestTerminalForTable(t *testing.T) {
	cases := []struct {
		serverHeader, requestHeader string
		want                        bool
	}{
		{"NodeHello", "ClientHello", true},
		{"CloseConnectionDuplicateName", "ClientHello", true},
		{"Peer", "ListPeers", false}, // element-of-list, not terminal
		{"EndListPeers", "ListPeers", true},
		{"PeerNote", "ModifyPeerNote", true},
		{"PeerRemoved", "RemovePeer", true},
		{"SimpleProgress", "ClientPut", false},
		{"PutSuccessful", "ClientPut", true},
		{"PutFailed", "ClientPut", true},
		{"DataFound", "ClientGet", true},
		{"GetFailed", "ClientGet", true},
		{"ProtocolError", "ClientGet", true}, // errors are globally terminal
		{"ProtocolError", "AnythingAtAll", true},
		{"SubscriptionSucceeded", "SubscribeUSK", true},
		{"SubscribedUSKUpdate", "SubscribeUSK", false}, // unsolicited, not terminal
	}
	for _, c := range cases {
		got := TerminalFor(c.serverHeader, c.requestHeader)
		if got != c.want {
			t.Errorf("TerminalFor(%q, %q) = %v, want %v", c.serverHeader, c.requestHeader, got, c.want)
		}
	}
}

func TestIsErrorAndIsProgress(t *testing.T) {
	if !IsError(Classify("ProtocolError")) {
		t.Error("ProtocolError should be an error kind")
	}
	if IsError(Classify("SimpleProgress")) {
		t.Error("SimpleProgress should not be an error kind")
	}
	if !IsProgress(Classify("SimpleProgress")) {
		t.Error("SimpleProgress should be a progress kind")
	}
	if IsProgress(Classify("PutSuccessful")) {
		t.Error("PutSuccessful should not be a progress kind")
	}
}

func TestIsUnsolicited(t *testing.T) {
	if !IsUnsolicited(Classify("PersistentRequestRemoved")) {
		t.Error("PersistentRequestRemoved should be unsolicited")
	}
	if IsUnsolicited(Classify("PutSuccessful")) {
		t.Error("PutSuccessful should not be unsolicited")
	}
}
