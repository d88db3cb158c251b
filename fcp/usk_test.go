// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp_test

import (
	"testing"
	"time"

	"github.com/gohyphanet/fcpcore/fcp"
)

func TestUSKManagerSubscribeDispatchesUpdates(t *testing.T) {
	session, conn := connectedSession(t)
	defer session.Shutdown()

	mgr := fcp.NewUSKManager(session)

	subAck := make(chan *fcp.Message, 1)
	go func() {
		req, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("server: read SubscribeUSK: %v", err)
			return
		}
		subAck <- req
		id, _ := req.Get("Identifier")
		conn.Send(fcp.NewMessage("SubscriptionSucceeded").Set("Identifier", id))
	}()

	updates := make(chan int64, 1)
	sub, err := mgr.Subscribe("USK@key/site/3", func(uri string, edition int64, newURI string) {
		updates <- edition
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	req := <-subAck
	if v, _ := req.Get("URI"); v != "USK@key/site/3" {
		t.Errorf("SubscribeUSK URI = %q, want USK@key/site/3", v)
	}

	conn.Send(fcp.NewMessage("SubscribedUSKUpdate").
		Set("Identifier", sub.Identifier).
		Set("URI", "USK@key/site/4").
		Set("Edition", "4"))

	select {
	case edition := <-updates:
		if edition != 4 {
			t.Errorf("callback edition = %d, want 4", edition)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for USK update callback")
	}

	if got := mgr.GetSubscription(sub.Identifier); got == nil {
		t.Error("GetSubscription returned nil for an active subscription")
	}
}

func TestUSKManagerSubscribeTwiceSharesOneWireSubscription(t *testing.T) {
	session, conn := connectedSession(t)
	defer session.Shutdown()

	mgr := fcp.NewUSKManager(session)

	go func() {
		req, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("server: read SubscribeUSK: %v", err)
			return
		}
		id, _ := req.Get("Identifier")
		conn.Send(fcp.NewMessage("SubscriptionSucceeded").Set("Identifier", id))
	}()

	first, err := mgr.Subscribe("USK@key/site/0", func(string, int64, string) {})
	if err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	second, err := mgr.Subscribe("USK@key/site/0", func(string, int64, string) {})
	if err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}
	if first.Identifier != second.Identifier {
		t.Errorf("Subscribe on the same URI allocated two wire subscriptions: %q vs %q", first.Identifier, second.Identifier)
	}
	if len(mgr.GetAllSubscriptions()) != 1 {
		t.Errorf("GetAllSubscriptions() = %d, want 1", len(mgr.GetAllSubscriptions()))
	}
}

func TestUSKManagerUnsubscribeForgetsLocally(t *testing.T) {
	session, conn := connectedSession(t)
	defer session.Shutdown()

	mgr := fcp.NewUSKManager(session)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		req, _ := conn.ReadMessage()
		id, _ := req.Get("Identifier")
		conn.Send(fcp.NewMessage("SubscriptionSucceeded").Set("Identifier", id))
		unsub, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("server: read UnsubscribeUSK: %v", err)
			return
		}
		if unsub.Header != "UnsubscribeUSK" {
			t.Errorf("expected UnsubscribeUSK, got %s", unsub.Header)
		}
	}()

	sub, err := mgr.Subscribe("USK@key/site/0", func(string, int64, string) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := mgr.Unsubscribe(sub.Identifier); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if got := mgr.GetSubscription(sub.Identifier); got != nil {
		t.Error("GetSubscription still returns the subscription after Unsubscribe")
	}

	// Unsubscribe only enqueues UnsubscribeUSK; wait for the server side to
	// see it before the deferred Shutdown closes the connection.
	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the server to receive UnsubscribeUSK")
	}
}
