// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"sync"
	"time"
)

// JobStatus is the lifecycle state of a JobTicket.
type JobStatus int

const (
	StatusQueued JobStatus = iota
	StatusInFlight
	StatusCompleted
	StatusFailed
	StatusTimedOut
	StatusCancelled
)

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusInFlight:
		return "InFlight"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusTimedOut:
		return "TimedOut"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s JobStatus) terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	default:
		return false
	}
}

// JobTicket is a single outstanding client request: its identifier, its
// sent message, its accumulated response messages, and the completion
// signal awaited by the submitting caller.
//
// The registry owns a JobTicket while it is in flight; ownership is handed
// to the caller once a terminal state is reached. append is called only by
// the Reader loop, so mutation of response/status is race-free by
// construction; the mutex exists only to publish state across the memory
// barrier to waiting callers and to make Wait/Cancel/GetResponse safe to
// call concurrently with a late append.
type JobTicket struct {
	id          string
	registryKey string
	request     *Message
	persistent  bool

	mu       sync.Mutex
	response []*Message
	status   JobStatus
	cause    error

	done     chan struct{}
	doneOnce sync.Once

	deadline time.Time
}

// NewJobTicket creates a job in state Queued for the given request message.
func NewJobTicket(id string, request *Message, persistent bool) *JobTicket {
	return &JobTicket{
		id:         id,
		request:    request,
		persistent: persistent,
		status:     StatusQueued,
		done:       make(chan struct{}),
	}
}

// ID returns the job's identifier.
func (j *JobTicket) ID() string { return j.id }

// Request returns the message this job was submitted with.
func (j *JobTicket) Request() *Message { return j.request }

// markInFlight transitions Queued -> InFlight. Called by the Writer right
// after registering the job and before writing its bytes to the socket.
func (j *JobTicket) markInFlight() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusQueued {
		j.status = StatusInFlight
	}
}

// setDeadline records an absolute deadline on the ticket. Wait does not
// consult it; Wait's timeout comes only from its argument.
func (j *JobTicket) setDeadline(d time.Time) {
	j.mu.Lock()
	j.deadline = d
	j.mu.Unlock()
}

// append records an inbound server message. If it is terminal for this
// job's request command and the job is not already terminal, the job's
// final status is set and the completion signal is raised. Returns true if
// the message was accepted (the caller, the Reader loop, should otherwise
// treat this job as closed and stop routing to it).
func (j *JobTicket) append(msg *Message) (accepted bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.terminal() {
		return false
	}

	j.response = append(j.response, msg)

	kind := Classify(msg.Header)
	if !TerminalFor(msg.Header, j.request.Header) {
		return true
	}

	if IsError(kind) {
		j.status = StatusFailed
		j.cause = messageToError(msg)
	} else {
		j.status = StatusCompleted
	}
	j.signalDone()
	return true
}

func (j *JobTicket) signalDone() {
	j.doneOnce.Do(func() { close(j.done) })
}

// Wait blocks until the completion signal is raised or timeout elapses (a
// zero timeout means wait forever). Idempotent: callers may re-Wait after
// completion and will return immediately.
func (j *JobTicket) Wait(timeout time.Duration) JobStatus {
	if timeout <= 0 {
		<-j.done
		return j.Status()
	}

	select {
	case <-j.done:
		return j.Status()
	case <-time.After(timeout):
		j.mu.Lock()
		if !j.status.terminal() {
			j.status = StatusTimedOut
			j.cause = &TimeoutError{Identifier: j.id}
			j.signalDone()
		}
		status := j.status
		j.mu.Unlock()
		return status
	}
}

// Status returns the job's current status.
func (j *JobTicket) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the cause of a Failed/TimedOut/Cancelled job, or nil.
func (j *JobTicket) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cause
}

// GetResponse returns the accumulated sequence of server messages received
// so far for this job, in wire-arrival order. Callers that expect a single
// terminal message should read the last element.
func (j *JobTicket) GetResponse() []*Message {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*Message, len(j.response))
	copy(out, j.response)
	return out
}

// Last returns the final response message, or nil if none has arrived.
func (j *JobTicket) Last() *Message {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.response) == 0 {
		return nil
	}
	return j.response[len(j.response)-1]
}

// cancel forces state Cancelled and signals waiters. Terminal states are
// sticky, so cancelling an already-terminal job is a no-op.
func (j *JobTicket) cancel(cause error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.terminal() {
		return
	}
	j.status = StatusCancelled
	j.cause = &CancelledError{Identifier: j.id, Cause: cause}
	j.signalDone()
}

// Cancel is the public form of cancel, for callers that want to give up on
// a job explicitly.
func (j *JobTicket) Cancel() { j.cancel(nil) }

func messageToError(msg *Message) error {
	code, _ := msg.Get("Code")
	desc, _ := msg.Get("CodeDescription")
	fatal, _ := msg.Get("Fatal")

	switch Classify(msg.Header) {
	case KindIdentifierCollision:
		return &IdentifierCollisionError{Identifier: msg.Identifier()}
	case KindUnknownNodeIdentifier:
		id, _ := msg.Get("NodeIdentifier")
		return &UnknownNodeIdentifierError{Identifier: id}
	case KindUnknownPeerNoteType:
		nt, _ := msg.Get("PeerNoteType")
		return &UnknownPeerNoteTypeError{NoteType: nt}
	case KindCloseConnectionDuplicateName:
		return &ProtocolError{
			CodeDescription: "node closed the connection: Name is already in use by another client",
			Fatal:           true,
		}
	default:
		return &ProtocolError{
			Code:            code,
			CodeDescription: desc,
			Identifier:      msg.Identifier(),
			Fatal:           fatal == "true",
		}
	}
}
