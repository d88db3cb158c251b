// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gohyphanet/fcpcore/fcp"
	"github.com/gohyphanet/fcpcore/fcp/fcptest"
)

func dialConfig(addr string) *fcp.Config {
	cfg := fcp.DefaultConfig()
	cfg.Name = "alice"
	host, port, _ := strings.Cut(addr, ":")
	cfg.Host = host
	cfg.Port = atoiMust(port)
	cfg.HelloTimeoutSeconds = 2
	cfg.GlobalCommandsTimeoutSeconds = 1
	return cfg
}

func atoiMust(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func TestHelloSuccess(t *testing.T) {
	server, addr := fcptest.Start(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn := server.Accept()
		if _, err := conn.ReadMessage(); err != nil {
			t.Errorf("server: read ClientHello: %v", err)
			return
		}
		conn.Hello("2.0", "Fred")
	}()

	session, err := fcp.Connect(dialConfig(addr))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Shutdown()
	<-done

	hello := session.GetNodeHello()
	if hello == nil {
		t.Fatal("GetNodeHello() = nil")
	}
	if v, _ := hello.Get("FCPVersion"); v != "2.0" {
		t.Errorf("FCPVersion = %q, want 2.0", v)
	}
}

func TestHelloDuplicateName(t *testing.T) {
	server, addr := fcptest.Start(t)

	go func() {
		conn := server.Accept()
		conn.ReadMessage()
		conn.Send(fcp.NewMessage("CloseConnectionDuplicateName"))
	}()

	_, err := fcp.Connect(dialConfig(addr))
	if err == nil {
		t.Fatal("Connect succeeded, want a ProtocolError-class failure")
	}
}

func TestListPeersEmpty(t *testing.T) {
	session, conn := connectedSession(t)
	go func() {
		conn.ReadMessage()
		conn.Send(fcp.NewMessage("EndListPeers"))
	}()
	defer session.Shutdown()

	peers, err := session.ListPeers()
	if err != nil {
		t.Fatalf("ListPeers: %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("ListPeers() = %d peers, want 0", len(peers))
	}
}

func TestListPeersTwoPeersPreservesOrder(t *testing.T) {
	session, conn := connectedSession(t)
	go func() {
		conn.ReadMessage()
		conn.Send(fcp.NewMessage("Peer").Set("NodeIdentifier", "peer-a"))
		conn.Send(fcp.NewMessage("Peer").Set("NodeIdentifier", "peer-b"))
		conn.Send(fcp.NewMessage("EndListPeers"))
	}()
	defer session.Shutdown()

	peers, err := session.ListPeers()
	if err != nil {
		t.Fatalf("ListPeers: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("ListPeers() = %d peers, want 2", len(peers))
	}
	if v, _ := peers[0].Get("NodeIdentifier"); v != "peer-a" {
		t.Errorf("peers[0] = %q, want peer-a", v)
	}
	if v, _ := peers[1].Get("NodeIdentifier"); v != "peer-b" {
		t.Errorf("peers[1] = %q, want peer-b", v)
	}
}

func TestClientPutProgressThenSuccess(t *testing.T) {
	session, conn := connectedSession(t)
	requestSeen := make(chan *fcp.Message, 1)
	go func() {
		req, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("server: read ClientPut: %v", err)
			return
		}
		requestSeen <- req

		conn.Send(fcp.NewMessage("URIGenerated").Set("Identifier", "job7").Set("URI", "CHK@abc"))
		conn.Send(fcp.NewMessage("SimpleProgress").Set("Identifier", "job7"))
		conn.Send(fcp.NewMessage("SimpleProgress").Set("Identifier", "job7"))
		conn.Send(fcp.NewMessage("PutSuccessful").Set("Identifier", "job7").Set("URI", "CHK@abc"))
	}()
	defer session.Shutdown()

	reply, err := session.ClientPutDirect("job7", "CHK@", []byte("hello"))
	if err != nil {
		t.Fatalf("ClientPutDirect: %v", err)
	}
	if reply.Header != "PutSuccessful" {
		t.Errorf("final message = %q, want PutSuccessful", reply.Header)
	}

	req := <-requestSeen
	if string(req.Payload) != "hello" {
		t.Errorf("request payload = %q, want hello", req.Payload)
	}
}

func TestGlobalCommandTimeoutDoesNotWedgeSession(t *testing.T) {
	session, conn := connectedSession(t)
	go func() {
		conn.ReadMessage() // accept the GetNode request and then send nothing back
		conn.ReadMessage() // answer the follow-up ListPeers
		conn.Send(fcp.NewMessage("EndListPeers"))
	}()
	defer session.Shutdown()

	job, err := session.Submit(fcp.NewMessage("GetNode"), "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	status := job.Wait(200 * time.Millisecond)
	if status != fcp.StatusTimedOut {
		t.Errorf("Wait() = %v, want TimedOut", status)
	}

	// The session must still be usable after a timed-out job.
	if session.GetNodeHello() == nil {
		t.Error("session appears torn down after a per-job timeout")
	}
	next, err := session.Submit(fcp.NewMessage("ListPeers"), "")
	if err != nil {
		t.Fatalf("Submit after timeout: %v", err)
	}
	if status := next.Wait(time.Second); status != fcp.StatusCompleted {
		t.Errorf("follow-up ListPeers Wait() = %v, want Completed", status)
	}
}

// connectedSession starts a fcptest server, completes the ClientHello
// handshake against it, and returns the resulting session along with the
// single accepted Conn so the caller can script the rest of the exchange
// on the same connection.
func connectedSession(t *testing.T) (*fcp.NodeSession, *fcptest.Conn) {
	t.Helper()
	server, addr := fcptest.Start(t)

	type result struct {
		session *fcp.NodeSession
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		s, err := fcp.Connect(dialConfig(addr))
		resultCh <- result{s, err}
	}()

	conn := server.Accept()
	conn.ReadMessage()
	conn.Hello("2.0", "Fred")

	r := <-resultCh
	if r.err != nil {
		t.Fatalf("Connect: %v", r.err)
	}
	return r.session, conn
}
