// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import "testing"

func TestRegistryRoutesByIdentifier(t *testing.T) {
	r := NewJobRegistry()
	job := NewJobTicket("job1", NewMessage("ClientGet").Set("Identifier", "job1"), false)
	r.Insert(job)

	got := r.Route(NewMessage("DataFound").Set("Identifier", "job1"))
	if got != job {
		t.Fatalf("Route did not find job1 by identifier")
	}
}

func TestRegistryRoutesGlobalBucketFIFO(t *testing.T) {
	r := NewJobRegistry()
	first := NewJobTicket("", NewMessage("ListPeers"), false)
	second := NewJobTicket("", NewMessage("ListPeers"), false)
	r.Insert(first)
	r.Insert(second)

	// First EndListPeers should resolve the oldest still-open global job.
	got := r.Route(NewMessage("EndListPeers"))
	if got != first {
		t.Fatalf("Route returned the wrong global job: expected oldest (first)")
	}
	first.append(NewMessage("EndListPeers"))
	r.Remove(first.registryKey)

	got2 := r.Route(NewMessage("EndListPeers"))
	if got2 != second {
		t.Fatalf("Route did not advance to the next global job after the first completed")
	}
}

func TestRegistryGlobalBucketRespectsCommandClass(t *testing.T) {
	r := NewJobRegistry()
	listPeers := NewJobTicket("", NewMessage("ListPeers"), false)
	getNode := NewJobTicket("", NewMessage("GetNode"), false)
	r.Insert(listPeers)
	r.Insert(getNode)

	got := r.Route(NewMessage("NodeData"))
	if got != getNode {
		t.Fatalf("Route matched NodeData to the wrong global job; want the GetNode job, got a different one")
	}
}

func TestRegistryRouteReturnsNilWhenNoJobMatches(t *testing.T) {
	r := NewJobRegistry()
	if got := r.Route(NewMessage("Peer").Set("Identifier", "missing")); got != nil {
		t.Errorf("Route() = %v, want nil for an unknown identifier with no global jobs", got)
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewJobRegistry()
	job := NewJobTicket("job1", NewMessage("ListPeer"), false)
	r.Insert(job)
	r.Remove("job1")
	r.Remove("job1")
	if got := r.Route(NewMessage("Peer").Set("Identifier", "job1")); got != nil {
		t.Errorf("Route() = %v, want nil after Remove", got)
	}
}

func TestRegistryCancelAllMarksEveryJobCancelled(t *testing.T) {
	r := NewJobRegistry()
	a := NewJobTicket("a", NewMessage("GetNode"), false)
	b := NewJobTicket("", NewMessage("ListPeers"), false)
	r.Insert(a)
	r.Insert(b)

	r.CancelAll(errSessionClosed)

	if a.Status() != StatusCancelled || b.Status() != StatusCancelled {
		t.Errorf("CancelAll left a=%v b=%v, want both Cancelled", a.Status(), b.Status())
	}
}
