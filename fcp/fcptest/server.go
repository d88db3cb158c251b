// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

// Package fcptest provides a minimal scripted stand-in for a Freenet node's
// FCP listener, used to drive the literal scenarios in the core's test
// suite without a real node. It speaks exactly the wire framing in
// fcp.ReadMessage/fcp.WriteMessage and nothing else: no routing, no peer
// state, no persistence.
package fcptest

import (
	"bufio"
	"net"
	"testing"

	"github.com/gohyphanet/fcpcore/fcp"
)

// Server is a single-connection fake FCP node. It listens on loopback,
// accepts exactly one connection, and hands the test a Conn to script
// reads and writes against.
type Server struct {
	t        *testing.T
	listener net.Listener
}

// Start opens a loopback listener and returns the Server and the address a
// fcp.Config should dial.
func Start(t *testing.T) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fcptest: listen: %v", err)
	}
	s := &Server{t: t, listener: ln}
	t.Cleanup(func() { ln.Close() })
	return s, ln.Addr().String()
}

// Accept blocks for the client's connection and returns a Conn wrapping it.
func (s *Server) Accept() *Conn {
	s.t.Helper()
	nc, err := s.listener.Accept()
	if err != nil {
		s.t.Fatalf("fcptest: accept: %v", err)
	}
	c := &Conn{t: s.t, nc: nc, reader: bufio.NewReader(nc)}
	s.t.Cleanup(func() { nc.Close() })
	return c
}

// Conn is one accepted connection, offering blocking message-level
// read/write scripted from the test goroutine.
type Conn struct {
	t      *testing.T
	nc     net.Conn
	reader *bufio.Reader
}

// ReadMessage blocks for the client's next message.
func (c *Conn) ReadMessage() (*fcp.Message, error) {
	return fcp.ReadMessage(c.reader)
}

// Send writes msg to the client and flushes.
func (c *Conn) Send(msg *fcp.Message) {
	c.t.Helper()
	if err := fcp.WriteMessage(c.nc, msg); err != nil {
		c.t.Fatalf("fcptest: write: %v", err)
	}
}

// SendRaw writes a literal wire fragment, for tests that need to exercise
// malformed or node-quirky framing the Message builder cannot express.
func (c *Conn) SendRaw(raw string) {
	c.t.Helper()
	if _, err := c.nc.Write([]byte(raw)); err != nil {
		c.t.Fatalf("fcptest: write raw: %v", err)
	}
}

// Close closes the underlying connection, simulating the node dropping the
// client.
func (c *Conn) Close() { c.nc.Close() }

// Hello writes the standard NodeHello reply to the pending ClientHello.
func (c *Conn) Hello(fcpVersion, node string) {
	c.Send(fcp.NewMessage("NodeHello").
		Set("FCPVersion", fcpVersion).
		Set("Node", node))
}
