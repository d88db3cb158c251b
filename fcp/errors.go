// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import "fmt"

// TransportError wraps a socket I/O failure. It is always session-fatal.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("fcp: transport error: %v", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// MalformedFrameError is a codec error; session-fatal.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string { return "fcp: malformed frame: " + e.Reason }

// UnknownServerMessageError is a classifier error for a header outside the
// fixed variant set; session-fatal.
type UnknownServerMessageError struct {
	Header string
}

func (e *UnknownServerMessageError) Error() string {
	return "fcp: unknown server message: " + e.Header
}

// ProtocolError mirrors the node's ProtocolError server message. It is
// recoverable: the owning job fails, the session continues.
type ProtocolError struct {
	Code            string
	CodeDescription string
	Identifier      string
	Fatal           bool
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("fcp: protocol error %s: %s", e.Code, e.CodeDescription)
}

// IdentifierCollisionError reports that a job's identifier was already in
// use by another outstanding request.
type IdentifierCollisionError struct {
	Identifier string
}

func (e *IdentifierCollisionError) Error() string {
	return "fcp: identifier collision: " + e.Identifier
}

// UnknownNodeIdentifierError reports an unrecognized peer identifier.
type UnknownNodeIdentifierError struct {
	Identifier string
}

func (e *UnknownNodeIdentifierError) Error() string {
	return "fcp: unknown node identifier: " + e.Identifier
}

// UnknownPeerNoteTypeError reports an unrecognized peer note type.
type UnknownPeerNoteTypeError struct {
	NoteType string
}

func (e *UnknownPeerNoteTypeError) Error() string {
	return "fcp: unknown peer note type: " + e.NoteType
}

// TimeoutError reports that a job's deadline elapsed before completion.
// It is per-job and does not affect the session.
type TimeoutError struct {
	Identifier string
}

func (e *TimeoutError) Error() string {
	return "fcp: timeout waiting for response to " + e.Identifier
}

// BadArgumentError is raised synchronously for caller misuse, e.g. calling
// ModifyConfig with a message whose header is not ModifyConfig. It is never
// sent to the node.
type BadArgumentError struct {
	Reason string
}

func (e *BadArgumentError) Error() string { return "fcp: bad argument: " + e.Reason }

// CancelledError reports that a job was cancelled, either explicitly or
// because the session was shut down.
type CancelledError struct {
	Identifier string
	Cause      error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fcp: job %s cancelled: %v", e.Identifier, e.Cause)
	}
	return "fcp: job " + e.Identifier + " cancelled"
}
func (e *CancelledError) Unwrap() error { return e.Cause }

// KeyNotFoundError reports that a KeyStoreInterface lookup, update, or
// delete named a key that isn't in the store.
type KeyNotFoundError struct {
	Name string
}

func (e *KeyNotFoundError) Error() string { return "fcp: key not found: " + e.Name }

// KeyExistsError reports that Add was called with a name already present
// in the store; callers wanting an upsert should call Update instead.
type KeyExistsError struct {
	Name string
}

func (e *KeyExistsError) Error() string { return "fcp: key already exists: " + e.Name }
