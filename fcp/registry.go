// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import "sync"

// globalEntry is one job in the registry bucket used for commands submitted
// with the empty identifier (spec.md's "global" commands). Each such submission is
// given a synthesized, registry-unique key so it can still be looked up
// directly once matched, but routing for inbound messages that lack an
// Identifier field falls through to the FIFO bucket below.
type globalEntry struct {
	key string
	job *JobTicket
}

// JobRegistry maps identifiers to outstanding JobTickets and routes inbound
// server messages to the job that should receive them. It owns a ticket
// while the ticket is in flight; ownership passes back to the caller once
// the ticket reaches a terminal state, at which point remove() drops it
// from the map.
type JobRegistry struct {
	mu       sync.Mutex
	byID     map[string]*JobTicket
	global   []globalEntry
	counter  uint64
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{byID: make(map[string]*JobTicket)}
}

// Insert registers job. If job's identifier is empty, a synthesized,
// registry-unique key is generated and the job is also appended to the
// global FIFO bucket for class-based routing. Insert must happen before
// the request bytes are flushed, so the Reader cannot observe a response
// before the job is known (spec.md §4.4).
func (r *JobRegistry) Insert(job *JobTicket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := job.id
	if key == "" {
		r.counter++
		key = syntheticKey(r.counter)
		r.global = append(r.global, globalEntry{key: key, job: job})
	}
	job.registryKey = key
	r.byID[key] = job
}

// Route decides which job, if any, should receive msg. Rule, per spec.md
// §4.4:
//  1. If msg has a non-empty Identifier matching a live job, return it.
//  2. Else if msg's kind is in the global class, return the oldest
//     waiting global job whose request command can legally receive it.
//  3. Else return nil; the caller should log a warning and discard.
func (r *JobRegistry) Route(msg *Message) *JobTicket {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id := msg.Identifier(); id != "" {
		if job, ok := r.byID[id]; ok {
			return job
		}
	}

	for _, entry := range r.global {
		if entry.job.Status().terminal() {
			continue
		}
		if !canReceive(entry.job.request.Header, msg.Header) {
			continue
		}
		return entry.job
	}
	return nil
}

// canReceive reports whether a global-bucket job submitted with
// requestHeader may legally receive a server message with serverHeader,
// either as its terminal message or as an element of a list response.
func canReceive(requestHeader, serverHeader string) bool {
	if TerminalFor(serverHeader, requestHeader) {
		return true
	}
	kind := Classify(serverHeader)
	switch requestHeader {
	case "ListPeers":
		return kind == KindPeer
	case "ListPeerNotes":
		return kind == KindPeerNote
	case "ListPersistentRequest":
		return kind == KindPersistentGet || kind == KindPersistentPut || kind == KindPersistentPutDir
	default:
		return false
	}
}

// Remove drops id from the registry, e.g. once a job's ticket has been
// handed back to the caller. It is idempotent.
func (r *JobRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	for i, e := range r.global {
		if e.key == id {
			r.global = append(r.global[:i:i], r.global[i+1:]...)
			break
		}
	}
}

// CancelAll forces every live job into Cancelled with cause, used during
// session shutdown.
func (r *JobRegistry) CancelAll(cause error) {
	r.mu.Lock()
	jobs := make([]*JobTicket, 0, len(r.byID))
	for _, j := range r.byID {
		jobs = append(jobs, j)
	}
	r.byID = make(map[string]*JobTicket)
	r.global = nil
	r.mu.Unlock()

	for _, j := range jobs {
		j.cancel(cause)
	}
}

func syntheticKey(n uint64) string {
	const hex = "0123456789abcdef"
	if n == 0 {
		return "__global0"
	}
	buf := make([]byte, 0, 24)
	buf = append(buf, "__global"...)
	var digits [16]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = hex[n&0xf]
		n >>= 4
	}
	buf = append(buf, digits[i:]...)
	return string(buf)
}
