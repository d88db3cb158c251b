// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// USKSubscription represents an active USK subscription
type USKSubscription struct {
	ID          string
	URI         string
	Edition     int64
	Identifier  string
	DontPoll    bool
	Callbacks   []USKCallback
	callbacksMu sync.RWMutex
}

// USKCallback is called when a USK update is received
type USKCallback func(uri string, edition int64, newURI string)

// USKManager tracks USK subscriptions over a session and fans out the
// unsolicited SubscribedUSK* notifications it receives to per-URI
// callbacks. It registers itself as the session's subscription sink, so a
// session may have at most one active USKManager.
type USKManager struct {
	session       *NodeSession
	subscriptions map[string]*USKSubscription
	mu            sync.RWMutex
	counter       uint64
}

// NewUSKManager creates a USK manager bound to session and installs it as
// the session's subscription sink.
func NewUSKManager(session *NodeSession) *USKManager {
	mgr := &USKManager{
		session:       session,
		subscriptions: make(map[string]*USKSubscription),
	}
	session.SetSubscriptionSink(mgr.dispatch)
	return mgr
}

func (m *USKManager) dispatch(msg *Message) {
	switch Classify(msg.Header) {
	case KindSubscribedUSKUpdate:
		m.handleUSKUpdate(msg)
	case KindSubscribedUSKRoundFinished, KindSubscribedUSKSendingToNetwork:
		// status-only notifications; nothing to project onto a callback yet.
	}
}

// Subscribe sends SubscribeUSK for uri and registers callback to be invoked
// for every SubscribedUSKUpdate that follows. Subscribing the same URI
// twice adds an additional callback rather than a second wire subscription.
func (m *USKManager) Subscribe(uri string, callback USKCallback) (*USKSubscription, error) {
	m.mu.Lock()
	for _, sub := range m.subscriptions {
		if sub.URI == uri {
			sub.callbacksMu.Lock()
			sub.Callbacks = append(sub.Callbacks, callback)
			sub.callbacksMu.Unlock()
			m.mu.Unlock()
			return sub, nil
		}
	}

	m.counter++
	identifier := fmt.Sprintf("usk-%d", m.counter)
	sub := &USKSubscription{
		ID:         identifier,
		URI:        uri,
		Identifier: identifier,
		Edition:    parseUSKEdition(uri),
		Callbacks:  []USKCallback{callback},
	}
	m.subscriptions[identifier] = sub
	m.mu.Unlock()

	msg := NewMessage("SubscribeUSK").
		Set("URI", uri).
		Set("Identifier", identifier).
		Set("DontPoll", "false").
		Set("SparsePoll", "true").
		Set("Priority", "4")

	job, err := m.session.SubmitAndWait(msg, identifier)
	if err != nil {
		m.forget(identifier)
		return nil, err
	}
	if job.Status() == StatusFailed {
		m.forget(identifier)
		return nil, job.Err()
	}
	return sub, nil
}

func (m *USKManager) forget(identifier string) {
	m.mu.Lock()
	delete(m.subscriptions, identifier)
	m.mu.Unlock()
}

// Unsubscribe tells the node to stop sending updates for identifier (as
// returned by Subscribe's USKSubscription.Identifier) and drops it from
// local tracking regardless of whether the node acknowledges.
func (m *USKManager) Unsubscribe(identifier string) error {
	msg := NewMessage("UnsubscribeUSK").Set("Identifier", identifier)
	_, err := m.session.submit(msg, "")
	m.forget(identifier)
	return err
}

// GetSubscription returns a subscription by identifier, or nil.
func (m *USKManager) GetSubscription(identifier string) *USKSubscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subscriptions[identifier]
}

// GetAllSubscriptions returns all tracked subscriptions.
func (m *USKManager) GetAllSubscriptions() []*USKSubscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs := make([]*USKSubscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	return subs
}

func (m *USKManager) handleUSKUpdate(msg *Message) {
	identifier := msg.Identifier()
	uri, _ := msg.Get("URI")
	editionStr, _ := msg.Get("Edition")
	edition, _ := strconv.ParseInt(editionStr, 10, 64)

	m.mu.RLock()
	sub, exists := m.subscriptions[identifier]
	m.mu.RUnlock()
	if !exists {
		return
	}

	sub.callbacksMu.Lock()
	sub.Edition = edition
	callbacks := make([]USKCallback, len(sub.Callbacks))
	copy(callbacks, sub.Callbacks)
	sub.callbacksMu.Unlock()

	for _, cb := range callbacks {
		cb(sub.URI, edition, uri)
	}
}

// parseUSKEdition extracts the edition number from a USK URI
func parseUSKEdition(uri string) int64 {
	if !strings.HasPrefix(uri, "USK@") {
		return 0
	}
	parts := strings.Split(uri, "/")
	if len(parts) < 3 {
		return 0
	}
	edition, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return edition
}

// UpdateUSKEdition updates the URI to use a specific edition
func UpdateUSKEdition(uri string, edition int64) string {
	if !strings.HasPrefix(uri, "USK@") {
		return uri
	}
	parts := strings.Split(uri, "/")
	if len(parts) < 3 {
		return uri
	}
	parts[len(parts)-1] = strconv.FormatInt(edition, 10)
	return strings.Join(parts, "/")
}

// ConvertUSKToSSK converts a USK to the equivalent SSK for a specific edition
func ConvertUSKToSSK(uri string, edition int64) string {
	if !strings.HasPrefix(uri, "USK@") {
		return uri
	}
	parts := strings.Split(uri, "/")
	if len(parts) < 3 {
		return uri
	}
	key := parts[0][4:]
	path := parts[1]
	return fmt.Sprintf("SSK@%s/%s-%d", key, path, edition)
}
