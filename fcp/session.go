// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for connecting to a Freenet/Hyphanet node. It
// doubles as the envconfig target in config.go; Logger is filled in after
// loading since it is not an env-addressable type. KeyStorePath is loaded
// from the environment but is not read by NodeSession.
type Config struct {
	Host                         string `env:"FCP_HOST"`
	Port                         int    `env:"FCP_PORT"`
	Name                         string `env:"FCP_NAME"`
	GlobalCommandsTimeoutSeconds int    `env:"FCP_GLOBAL_TIMEOUT_SECONDS"`
	HelloTimeoutSeconds          int    `env:"FCP_HELLO_TIMEOUT_SECONDS"`
	RequestQueueDepth            int    `env:"FCP_REQUEST_QUEUE_DEPTH"`
	KeyStorePath                 string `env:"FCP_KEY_STORE_PATH"`
	LogLevel                     string `env:"FCP_LOG_LEVEL"`
	Logger                       Logger
}

// DefaultConfig returns a config with the defaults from spec.md §6.
func DefaultConfig() *Config {
	return &Config{
		Host:                         "localhost",
		Port:                         9481,
		Name:                         "",
		GlobalCommandsTimeoutSeconds: 20,
		HelloTimeoutSeconds:          20,
		RequestQueueDepth:            64,
		LogLevel:                     "INFO",
	}
}

// SubscriptionSink receives unsolicited server messages: persistent-request
// notifications and USK subscription events that arrive bearing no live
// job. If none is registered, the Reader logs a warning and discards, per
// spec.md §9.
type SubscriptionSink func(msg *Message)

// NodeSession owns the socket, the writer and reader loops, and the job
// registry. It performs the initial ClientHello handshake on Connect and
// provides Submit and graceful Shutdown.
type NodeSession struct {
	cfg    Config
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	log    Logger

	registry *JobRegistry
	requests chan *JobTicket

	nodeHello *Message

	subMu sync.RWMutex
	sub   SubscriptionSink

	group  *errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}
}

// Connect opens a TCP connection, spawns the Reader and Writer loops, and
// performs the ClientHello/NodeHello handshake. If the reply is anything
// other than NodeHello within hello_timeout, construction fails and the
// session is torn down.
func Connect(cfg *Config) (*NodeSession, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Name == "" {
		c.Name = fmt.Sprintf("id%d", time.Now().Unix())
	}
	if c.GlobalCommandsTimeoutSeconds <= 0 {
		c.GlobalCommandsTimeoutSeconds = 20
	}
	if c.HelloTimeoutSeconds <= 0 {
		c.HelloTimeoutSeconds = 20
	}
	if c.RequestQueueDepth <= 0 {
		c.RequestQueueDepth = 64
	}
	if c.Logger == nil {
		c.Logger = NoopSink{}
	}

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(&TransportError{Cause: err}, "dial "+addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	s := &NodeSession{
		cfg:      c,
		conn:     conn,
		reader:   bufio.NewReader(conn),
		writer:   bufio.NewWriter(conn),
		log:      c.Logger,
		registry: NewJobRegistry(),
		requests: make(chan *JobTicket, c.RequestQueueDepth),
		group:    group,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	group.Go(func() error { return s.writerLoop(gctx) })
	group.Go(func() error { return s.readerLoop(gctx) })

	go func() {
		_ = group.Wait()
		close(s.done)
	}()

	hello := NewMessage("ClientHello").
		Set("Name", c.Name).
		Set("ExpectedVersion", "2.0")

	job, err := s.submit(hello, "")
	if err != nil {
		s.Shutdown()
		return nil, err
	}

	status := job.Wait(time.Duration(c.HelloTimeoutSeconds) * time.Second)
	switch status {
	case StatusCompleted:
		s.nodeHello = job.Last()
		s.log.Log(INFO, "connected to node "+fmt.Sprint(s.nodeHello.Get("Node")))
		return s, nil
	case StatusFailed:
		s.Shutdown()
		return nil, job.Err()
	default:
		s.Shutdown()
		return nil, errors.WithStack(&TimeoutError{Identifier: "ClientHello"})
	}
}

// GetNodeHello returns the cached NodeHello message from the handshake.
func (s *NodeSession) GetNodeHello() *Message { return s.nodeHello }

// SetSubscriptionSink registers the callback invoked for unsolicited
// server messages (persistent-request notifications, USK subscription
// events). Passing nil unregisters it.
func (s *NodeSession) SetSubscriptionSink(sink SubscriptionSink) {
	s.subMu.Lock()
	s.sub = sink
	s.subMu.Unlock()
}

// Submit enqueues message for transmission under the given identifier
// (empty for a global command) and returns its JobTicket immediately;
// submission does not wait for a response. Enqueueing blocks if the
// request queue is full.
func (s *NodeSession) Submit(message *Message, identifier string) (*JobTicket, error) {
	return s.submit(message, identifier)
}

func (s *NodeSession) submit(message *Message, identifier string) (*JobTicket, error) {
	job := NewJobTicket(identifier, message, false)
	select {
	case s.requests <- job:
		return job, nil
	case <-s.done:
		job.cancel(errSessionClosed)
		return job, errSessionClosed
	}
}

// SubmitAndWait is a convenience combining Submit and Wait with the
// session's global-commands timeout.
func (s *NodeSession) SubmitAndWait(message *Message, identifier string) (*JobTicket, error) {
	job, err := s.submit(message, identifier)
	if err != nil {
		return job, err
	}
	job.Wait(s.globalTimeout())
	return job, nil
}

func (s *NodeSession) globalTimeout() time.Duration {
	return time.Duration(s.cfg.GlobalCommandsTimeoutSeconds) * time.Second
}

var errSessionClosed = &CancelledError{Identifier: "", Cause: fmt.Errorf("session is shut down")}

// writerLoop consumes the bounded request queue; for each job it inserts it
// into the registry, marks it InFlight, and writes it to the wire. On I/O
// failure it marks all live jobs Cancelled with the error as cause and
// returns the error, which tears down the sibling Reader via errgroup.
func (s *NodeSession) writerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-s.requests:
			s.registry.Insert(job)
			job.markInFlight()

			s.log.Log(DEBUG, "-> "+job.request.String())
			if err := WriteMessage(s.writer, job.request); err != nil {
				s.registry.CancelAll(err)
				return err
			}
			if err := s.writer.Flush(); err != nil {
				werr := errors.Wrap(&TransportError{Cause: err}, "flush")
				s.registry.CancelAll(werr)
				return werr
			}
		}
	}
}

// readerLoop reads one server message at a time, classifies it, routes it
// to a job via the registry, and appends it. Unrouted messages that belong
// to the unsolicited class go to the subscription sink if registered, else
// are logged and discarded. On I/O failure or an Unknown header, it
// terminates the session.
func (s *NodeSession) readerLoop(ctx context.Context) error {
	for {
		msg, err := ReadMessage(s.reader)
		if err != nil {
			s.registry.CancelAll(err)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		kind := Classify(msg.Header)
		s.log.Log(DETAIL, "<- "+msg.String())

		if kind == KindUnknown {
			err := errors.WithStack(&UnknownServerMessageError{Header: msg.Header})
			s.registry.CancelAll(err)
			return err
		}

		if IsUnsolicited(kind) {
			s.dispatchUnsolicited(msg)
			continue
		}

		job := s.registry.Route(msg)
		if job == nil {
			s.log.Log(INFO, "no job for "+msg.Header+" identifier="+msg.Identifier()+"; discarding")
			continue
		}

		if accepted := job.append(msg); accepted && job.Status().terminal() {
			s.registry.Remove(job.registryKey)
		}
	}
}

func (s *NodeSession) dispatchUnsolicited(msg *Message) {
	s.subMu.RLock()
	sink := s.sub
	s.subMu.RUnlock()

	if sink == nil {
		s.log.Log(INFO, "no subscription sink registered for "+msg.Header+"; discarding")
		return
	}
	sink(msg)
}

// Shutdown interrupts the Writer and Reader, closes the socket, and marks
// all live jobs Cancelled.
func (s *NodeSession) Shutdown() {
	s.cancel()
	s.conn.Close()
	<-s.done
	s.registry.CancelAll(errSessionClosed)
}
