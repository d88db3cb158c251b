// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Peer wraps a single node-info record. The peer-listing commands below
// return the raw Peer *Message values rather than this type; callers read
// their fields with Get/GetAll.
type Peer struct{ Message *Message }

// ListPeer submits ListPeer for a single named peer and returns the node's
// terminal Peer record.
func (s *NodeSession) ListPeer(nodeIdentifier string) (*Message, error) {
	msg := NewMessage("ListPeer").Set("NodeIdentifier", nodeIdentifier)
	return s.oneShot(msg)
}

// ListPeers submits ListPeers and accumulates every Peer record up to the
// terminal EndListPeers, preserving wire order.
func (s *NodeSession) ListPeers() ([]*Message, error) {
	job, err := s.SubmitAndWait(NewMessage("ListPeers"), "")
	if err != nil {
		return nil, err
	}
	if job.Status() == StatusFailed {
		return nil, job.Err()
	}
	return filterKind(job.GetResponse(), KindPeer), nil
}

// ListPeerNotes submits ListPeerNotes for nodeIdentifier and accumulates
// every PeerNote up to EndListPeerNotes.
func (s *NodeSession) ListPeerNotes(nodeIdentifier string) ([]*Message, error) {
	msg := NewMessage("ListPeerNotes").Set("NodeIdentifier", nodeIdentifier)
	job, err := s.SubmitAndWait(msg, "")
	if err != nil {
		return nil, err
	}
	if job.Status() == StatusFailed {
		return nil, job.Err()
	}
	return filterKind(job.GetResponse(), KindPeerNote), nil
}

// AddPeer adds a peer described by a raw noderef (as served by the target
// node's fproxy, or a file:// URL per FCP 2.0) and returns its Peer record.
func (s *NodeSession) AddPeer(ref string) (*Message, error) {
	msg := NewMessage("AddPeer").Set("URL", ref)
	return s.oneShot(msg)
}

// AddPeerFields adds a peer from an explicit set of noderef fields, for
// callers that already have a parsed reference rather than a URL/file.
func (s *NodeSession) AddPeerFields(fields []Field) (*Message, error) {
	msg := NewMessage("AddPeer")
	msg.Fields = append(msg.Fields, fields...)
	return s.oneShot(msg)
}

// ModifyPeer changes one boolean attribute (e.g. AllowLocalAddresses,
// IsDisabled) of an existing peer.
func (s *NodeSession) ModifyPeer(nodeIdentifier, attribute string, value bool) (*Message, error) {
	msg := NewMessage("ModifyPeer").
		Set("NodeIdentifier", nodeIdentifier).
		Set(attribute, strconv.FormatBool(value))
	return s.oneShot(msg)
}

// ModifyPeerNote resolves the open question on which of the original
// variants to follow: it returns the single terminal PeerNote message.
func (s *NodeSession) ModifyPeerNote(nodeIdentifier, noteText string, noteType int) (*Message, error) {
	msg := NewMessage("ModifyPeerNote").
		Set("NodeIdentifier", nodeIdentifier).
		Set("NoteText", noteText).
		Set("PeerNoteType", strconv.Itoa(noteType))
	return s.oneShot(msg)
}

// RemovePeer removes a peer by identifier.
func (s *NodeSession) RemovePeer(nodeIdentifier string) error {
	msg := NewMessage("RemovePeer").Set("NodeIdentifier", nodeIdentifier)
	_, err := s.oneShot(msg)
	return err
}

// GetNode requests the node's own NodeData record.
func (s *NodeSession) GetNode(giveOpennetRef, withPrivate, withVolatile bool) (*Message, error) {
	msg := NewMessage("GetNode").
		Set("GiveOpennetRef", strconv.FormatBool(giveOpennetRef)).
		Set("WithPrivate", strconv.FormatBool(withPrivate)).
		Set("WithVolatile", strconv.FormatBool(withVolatile))
	return s.oneShot(msg)
}

// GetConfig requests the node's ConfigData record.
func (s *NodeSession) GetConfig(withCurrent, withDefaults bool) (*Message, error) {
	msg := NewMessage("GetConfig").
		Set("WithCurrent", strconv.FormatBool(withCurrent)).
		Set("WithDefaults", strconv.FormatBool(withDefaults))
	return s.oneShot(msg)
}

// ModifyConfig pushes a set of config field changes and returns the node's
// updated ConfigData. msg's header must be "ModifyConfig"; anything else is
// a caller bug and is rejected synchronously without touching the wire.
func (s *NodeSession) ModifyConfig(msg *Message) (*Message, error) {
	if msg.Header != "ModifyConfig" {
		return nil, errors.WithStack(&BadArgumentError{
			Reason: "ModifyConfig requires a message with header ModifyConfig, got " + msg.Header,
		})
	}
	return s.oneShot(msg)
}

// GenerateSSK requests a new SSK keypair from the node. If store is
// non-nil, the generated pair is persisted under name before being
// returned.
func (s *NodeSession) GenerateSSK(name string, store KeyStoreInterface) (*KeyPair, error) {
	reply, err := s.oneShot(NewMessage("GenerateSSK"))
	if err != nil {
		return nil, err
	}
	request, _ := reply.Get("RequestURI")
	insert, _ := reply.Get("InsertURI")
	kp := &KeyPair{
		Type:       "SSK",
		PublicKey:  request,
		PrivateKey: insert,
		Created:    time.Now(),
		Modified:   time.Now(),
	}
	if store != nil {
		if err := store.Add(name, kp); err != nil {
			return kp, errors.Wrap(err, "persist generated key")
		}
	}
	return kp, nil
}

// ClientPutDirect inserts data held entirely in memory.
func (s *NodeSession) ClientPutDirect(identifier, uri string, data []byte) (*Message, error) {
	msg := NewMessage("ClientPut").
		Set("URI", uri).
		Set("Identifier", identifier).
		Set("UploadFrom", "direct").
		WithPayload(data)
	return s.putAndWait(msg, identifier)
}

// ClientPutDisk inserts a file the node can read directly from the shared
// filesystem. It does not compute or send a FileHash: if the node denies
// direct disk access, its ProtocolError is returned as the error and no
// fallback insert is made.
func (s *NodeSession) ClientPutDisk(identifier, uri, filename string) (*Message, error) {
	msg := NewMessage("ClientPut").
		Set("URI", uri).
		Set("Identifier", identifier).
		Set("UploadFrom", "disk").
		Set("Filename", filename)
	return s.putAndWait(msg, identifier)
}

// ClientPutRedirect inserts a redirect to targetURI. Per the resolved open
// question, UploadFrom is always set to "redirect".
func (s *NodeSession) ClientPutRedirect(identifier, uri, targetURI string) (*Message, error) {
	msg := NewMessage("ClientPut").
		Set("URI", uri).
		Set("Identifier", identifier).
		Set("UploadFrom", "redirect").
		Set("TargetURI", targetURI)
	return s.putAndWait(msg, identifier)
}

func (s *NodeSession) putAndWait(msg *Message, identifier string) (*Message, error) {
	job, err := s.SubmitAndWait(msg, identifier)
	if err != nil {
		return nil, err
	}
	if job.Status() == StatusFailed {
		return nil, job.Err()
	}
	return job.Last(), nil
}

// ClientGet fetches a key. returnType selects "direct" (payload returned in
// AllData) or "disk" (written by the node to a path out of this package's
// concern).
func (s *NodeSession) ClientGet(identifier, uri, returnType string) (*Message, error) {
	msg := NewMessage("ClientGet").
		Set("URI", uri).
		Set("Identifier", identifier).
		Set("ReturnType", returnType)
	job, err := s.SubmitAndWait(msg, identifier)
	if err != nil {
		return nil, err
	}
	if job.Status() == StatusFailed {
		return nil, job.Err()
	}
	return job.Last(), nil
}

// TestDDAFunc reads or writes the node's probe file for a directory
// access test. The core treats file I/O as a caller concern per spec.md §1.
type TestDDAFunc func(path string) ([]byte, error)
type TestDDAWriteFunc func(path string, content []byte) error

// TestDDAResult is the outcome of a single directory-access probe.
type TestDDAResult struct {
	Directory string
	ReadOK    bool
	WriteOK   bool
	Err       error
}

// TestDDA runs the composite directory-access-test protocol: submit
// TestDDARequest; on TestDDAReply, read the node-designated probe file (if
// read was requested) and/or write the node-supplied content to the
// node-designated path (if write was requested); then submit
// TestDDAResponse and inspect TestDDAComplete. Any error at any step folds
// into a negative TestDDAResult rather than propagating, per spec.md §4.7.
func (s *NodeSession) TestDDA(directory string, wantRead, wantWrite bool, read TestDDAFunc, write TestDDAWriteFunc) TestDDAResult {
	result := TestDDAResult{Directory: directory}

	req := NewMessage("TestDDARequest").
		Set("Directory", directory).
		Set("WantReadDirectory", strconv.FormatBool(wantRead)).
		Set("WantWriteDirectory", strconv.FormatBool(wantWrite))

	reply, err := s.oneShot(req)
	if err != nil {
		result.Err = err
		return result
	}

	resp := NewMessage("TestDDAResponse").Set("Directory", directory)

	if wantRead {
		readPath, _ := reply.Get("ReadFilename")
		content, rerr := read(readPath)
		if rerr != nil {
			result.Err = errors.Wrap(rerr, "read probe file")
			return result
		}
		resp.Set("ReadContent", string(content))
	}

	if wantWrite {
		writePath, _ := reply.Get("WriteFilename")
		contentStr, _ := reply.Get("ContentToWrite")
		if werr := write(writePath, []byte(contentStr)); werr != nil {
			result.Err = errors.Wrap(werr, "write probe file")
			return result
		}
	}

	complete, err := s.oneShot(resp)
	if err != nil {
		result.Err = err
		return result
	}

	if wantRead {
		readOK, _ := complete.Get("ReadDirectoryAllowed")
		result.ReadOK = readOK == "true"
	}
	if wantWrite {
		writeOK, _ := complete.Get("WriteDirectoryAllowed")
		result.WriteOK = writeOK == "true"
	}
	return result
}

// SubscribeUSK subscribes to edition updates for a USK without going
// through USKManager. It takes no callback: the updates arrive as
// unsolicited messages at the session's SubscriptionSink.
func (s *NodeSession) SubscribeUSK(identifier, uri string, dontPoll bool) error {
	msg := NewMessage("SubscribeUSK").
		Set("URI", uri).
		Set("Identifier", identifier).
		Set("DontPoll", strconv.FormatBool(dontPoll))
	_, err := s.SubmitAndWait(msg, identifier)
	return err
}

// WatchGlobal enables or disables delivery of persistent-request
// notifications for every client connected to the node, not just this one.
func (s *NodeSession) WatchGlobal(enabled bool) error {
	msg := NewMessage("WatchGlobal").Set("Enabled", strconv.FormatBool(enabled))
	_, err := s.submit(msg, "")
	return err
}

// ListPersistentRequest lists every persistent request the node is
// tracking for this client, accumulating PersistentGet/PersistentPut/
// PersistentPutDir records up to EndListPersistentRequest.
func (s *NodeSession) ListPersistentRequest() ([]*Message, error) {
	job, err := s.SubmitAndWait(NewMessage("ListPersistentRequest"), "")
	if err != nil {
		return nil, err
	}
	if job.Status() == StatusFailed {
		return nil, job.Err()
	}
	var out []*Message
	for _, m := range job.GetResponse() {
		switch Classify(m.Header) {
		case KindPersistentGet, KindPersistentPut, KindPersistentPutDir:
			out = append(out, m)
		}
	}
	return out, nil
}

// RemovePersistentRequest asks the node to drop a previously submitted
// persistent request. It is fire-and-forget: the node answers, if at all,
// with an unsolicited PersistentRequestRemoved, not a direct reply.
func (s *NodeSession) RemovePersistentRequest(identifier string, global bool) error {
	msg := NewMessage("RemovePersistentRequest").
		Set("Identifier", identifier).
		Set("Global", strconv.FormatBool(global))
	_, err := s.submit(msg, "")
	return err
}

// Disconnect tells the node this client is going away cleanly.
func (s *NodeSession) Disconnect() error {
	_, err := s.submit(NewMessage("Disconnect"), "")
	return err
}

// oneShot submits msg under the global bucket and waits the session's
// global-commands timeout, unwrapping a Failed job into its error.
func (s *NodeSession) oneShot(msg *Message) (*Message, error) {
	job, err := s.SubmitAndWait(msg, "")
	if err != nil {
		return nil, err
	}
	if job.Status() == StatusFailed {
		return nil, job.Err()
	}
	if job.Status() == StatusTimedOut {
		return nil, errors.WithStack(&TimeoutError{Identifier: msg.Header})
	}
	return job.Last(), nil
}

func filterKind(msgs []*Message, kind ServerMessageKind) []*Message {
	var out []*Message
	for _, m := range msgs {
		if Classify(m.Header) == kind {
			out = append(out, m)
		}
	}
	return out
}
