// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"bytes"
	"fmt"
)

// Field is a single (key, value) pair of an FCP message. The wire format
// allows duplicate keys and is order-sensitive, so Message keeps fields in
// a slice rather than a map.
type Field struct {
	Key   string
	Value string
}

// Message is the in-memory representation of a single FCP message: a
// header naming the command or server reply, an ordered sequence of
// fields, and an optional trailing binary payload.
type Message struct {
	Header  string
	Fields  []Field
	Payload []byte
}

// NewMessage creates an empty message with the given header.
func NewMessage(header string) *Message {
	return &Message{Header: header}
}

// Set appends a field. Freenet tolerates and sometimes requires repeated
// keys (e.g. multiple WithX flags are never repeated in practice, but
// metadata fields can be), so Set never overwrites; use Replace for that.
func (m *Message) Set(key, value string) *Message {
	m.Fields = append(m.Fields, Field{Key: key, Value: value})
	return m
}

// Replace removes any existing fields with key and appends a single new one.
func (m *Message) Replace(key, value string) *Message {
	kept := m.Fields[:0]
	for _, f := range m.Fields {
		if f.Key != key {
			kept = append(kept, f)
		}
	}
	m.Fields = append(kept, Field{Key: key, Value: value})
	return m
}

// Get returns the value of the first field matching key, and whether it
// was present.
func (m *Message) Get(key string) (string, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// GetAll returns the values of every field matching key, in wire order.
func (m *Message) GetAll(key string) []string {
	var out []string
	for _, f := range m.Fields {
		if f.Key == key {
			out = append(out, f.Value)
		}
	}
	return out
}

// Identifier is a convenience accessor for the common "Identifier" field.
func (m *Message) Identifier() string {
	id, _ := m.Get("Identifier")
	return id
}

// WithPayload attaches a binary payload and sets DataLength accordingly.
func (m *Message) WithPayload(data []byte) *Message {
	m.Payload = data
	m.Replace("DataLength", fmt.Sprintf("%d", len(data)))
	return m
}

// Equal compares two messages by header and field multiset, per the
// round-trip invariant: parse(serialize(m)) == m as (header, multiset of
// fields). Payload is compared by content.
func (m *Message) Equal(other *Message) bool {
	if m.Header != other.Header {
		return false
	}
	if !bytes.Equal(m.Payload, other.Payload) {
		return false
	}
	if len(m.Fields) != len(other.Fields) {
		return false
	}
	remaining := make([]Field, len(other.Fields))
	copy(remaining, other.Fields)
	for _, f := range m.Fields {
		found := false
		for i, r := range remaining {
			if r == f {
				remaining = append(remaining[:i], remaining[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// String renders a human-readable form for logs; it is not the wire format.
func (m *Message) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s", m.Header)
	for _, f := range m.Fields {
		fmt.Fprintf(&buf, " %s=%s", f.Key, f.Value)
	}
	if len(m.Payload) > 0 {
		fmt.Fprintf(&buf, " (%d bytes payload)", len(m.Payload))
	}
	return buf.String()
}
