// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"testing"
	"time"
)

func TestJobTicketLifecycleCompleted(t *testing.T) {
	job := NewJobTicket("job1", NewMessage("ClientGet").Set("Identifier", "job1"), false)
	job.markInFlight()

	accepted := job.append(NewMessage("DataFound").Set("Identifier", "job1"))
	if !accepted {
		t.Fatal("append returned false for a live job")
	}
	if job.Status() != StatusCompleted {
		t.Errorf("Status() = %v, want Completed", job.Status())
	}
	if status := job.Wait(time.Second); status != StatusCompleted {
		t.Errorf("Wait() = %v, want Completed", status)
	}
}

func TestJobTicketLifecycleFailed(t *testing.T) {
	job := NewJobTicket("job2", NewMessage("ClientGet").Set("Identifier", "job2"), false)
	job.markInFlight()

	job.append(NewMessage("GetFailed").Set("Identifier", "job2").Set("Code", "13").Set("CodeDescription", "not found"))
	if job.Status() != StatusFailed {
		t.Fatalf("Status() = %v, want Failed", job.Status())
	}
	if job.Err() == nil {
		t.Error("Err() = nil, want a ProtocolError")
	}
}

func TestJobTicketProgressDoesNotComplete(t *testing.T) {
	job := NewJobTicket("job3", NewMessage("ClientPut").Set("Identifier", "job3"), false)
	job.markInFlight()

	job.append(NewMessage("SimpleProgress").Set("Identifier", "job3"))
	if job.Status() != StatusInFlight {
		t.Errorf("Status() = %v, want InFlight after a progress message", job.Status())
	}

	job.append(NewMessage("PutSuccessful").Set("Identifier", "job3"))
	if job.Status() != StatusCompleted {
		t.Errorf("Status() = %v, want Completed", job.Status())
	}
	if len(job.GetResponse()) != 2 {
		t.Errorf("len(GetResponse()) = %d, want 2", len(job.GetResponse()))
	}
}

func TestJobTicketTerminalIsSticky(t *testing.T) {
	job := NewJobTicket("job4", NewMessage("ListPeer").Set("Identifier", "job4"), false)
	job.markInFlight()
	job.append(NewMessage("Peer").Set("Identifier", "job4"))

	accepted := job.append(NewMessage("Peer").Set("Identifier", "job4"))
	if accepted {
		t.Error("append accepted a message for an already-terminal job")
	}
	if len(job.GetResponse()) != 1 {
		t.Errorf("len(GetResponse()) = %d, want 1 (second append must be dropped)", len(job.GetResponse()))
	}
}

func TestJobTicketWaitTimesOut(t *testing.T) {
	job := NewJobTicket("job5", NewMessage("ListPeers"), false)
	job.markInFlight()

	status := job.Wait(10 * time.Millisecond)
	if status != StatusTimedOut {
		t.Errorf("Wait() = %v, want TimedOut", status)
	}

	if job.append(NewMessage("Peer").Set("Identifier", "job5")) {
		t.Error("append accepted a message for a job that already timed out")
	}
}

func TestJobTicketCancel(t *testing.T) {
	job := NewJobTicket("job6", NewMessage("GetNode"), false)
	job.Cancel()
	if job.Status() != StatusCancelled {
		t.Errorf("Status() = %v, want Cancelled", job.Status())
	}
	select {
	case <-job.done:
	default:
		t.Error("Cancel() did not signal completion")
	}
}
