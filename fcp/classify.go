// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

// ServerMessageKind is the fixed classification of server->client message
// headers, adapted from the factory switch in the original C++
// ServerMessage::factory.
type ServerMessageKind int

const (
	KindUnknown ServerMessageKind = iota

	KindNodeHello
	KindCloseConnectionDuplicateName

	KindPeer
	KindPeerNote
	KindEndListPeers
	KindEndListPeerNotes
	KindEndListPersistentRequest
	KindPeerRemoved

	KindNodeData
	KindConfigData

	KindTestDDAReply
	KindTestDDAComplete

	KindSSKKeypair

	KindURIGenerated
	KindStartedCompression
	KindFinishedCompression
	KindSimpleProgress

	KindPutSuccessful
	KindPutFetchable
	KindDataFound
	KindAllData

	KindPutFailed
	KindGetFailed

	KindPersistentGet
	KindPersistentPut
	KindPersistentPutDir
	KindPersistentRequestRemoved
	KindPersistentRequestModified

	KindSubscriptionSucceeded
	KindSubscribedUSKUpdate
	KindSubscribedUSKRoundFinished
	KindSubscribedUSKSendingToNetwork

	KindProtocolError
	KindIdentifierCollision
	KindUnknownNodeIdentifier
	KindUnknownPeerNoteType
)

var headerToKind = map[string]ServerMessageKind{
	"NodeHello":                      KindNodeHello,
	"CloseConnectionDuplicateName":   KindCloseConnectionDuplicateName,
	"Peer":                           KindPeer,
	"PeerNote":                       KindPeerNote,
	"EndListPeers":                   KindEndListPeers,
	"EndListPeerNotes":               KindEndListPeerNotes,
	"EndListPersistentRequest":       KindEndListPersistentRequest,
	"PeerRemoved":                    KindPeerRemoved,
	"NodeData":                       KindNodeData,
	"ConfigData":                     KindConfigData,
	"TestDDAReply":                   KindTestDDAReply,
	"TestDDAComplete":                KindTestDDAComplete,
	"SSKKeypair":                     KindSSKKeypair,
	"URIGenerated":                   KindURIGenerated,
	"StartedCompression":             KindStartedCompression,
	"FinishedCompression":            KindFinishedCompression,
	"SimpleProgress":                 KindSimpleProgress,
	"PutSuccessful":                  KindPutSuccessful,
	"PutFetchable":                   KindPutFetchable,
	"DataFound":                      KindDataFound,
	"AllData":                        KindAllData,
	"PutFailed":                      KindPutFailed,
	"GetFailed":                      KindGetFailed,
	"PersistentGet":                  KindPersistentGet,
	"PersistentPut":                  KindPersistentPut,
	"PersistentPutDir":               KindPersistentPutDir,
	"PersistentRequestRemoved":       KindPersistentRequestRemoved,
	"PersistentRequestModified":      KindPersistentRequestModified,
	"SubscriptionSucceeded":          KindSubscriptionSucceeded,
	"SubscribedUSKUpdate":            KindSubscribedUSKUpdate,
	"SubscribedUSKRoundFinished":     KindSubscribedUSKRoundFinished,
	"SubscribedUSKSendingToNetwork":  KindSubscribedUSKSendingToNetwork,
	"ProtocolError":                  KindProtocolError,
	"IdentifierCollision":            KindIdentifierCollision,
	"UnknownNodeIdentifier":          KindUnknownNodeIdentifier,
	"UnknownPeerNoteType":            KindUnknownPeerNoteType,
}

// Classify maps a message's header to its fixed kind. The zero value
// KindUnknown means the header is not part of the FCP 2.0 variant set this
// runtime understands; per spec, the reader loop must fail the session on
// Classify returning KindUnknown.
func Classify(header string) ServerMessageKind {
	if k, ok := headerToKind[header]; ok {
		return k
	}
	return KindUnknown
}

// errorKinds are server message kinds classified as terminal errors.
var errorKinds = map[ServerMessageKind]bool{
	KindProtocolError:                true,
	KindIdentifierCollision:          true,
	KindUnknownNodeIdentifier:        true,
	KindUnknownPeerNoteType:          true,
	KindPutFailed:                    true,
	KindGetFailed:                    true,
	KindCloseConnectionDuplicateName: true,
}

// progressKinds are server message kinds classified as non-terminal
// progress notifications.
var progressKinds = map[ServerMessageKind]bool{
	KindURIGenerated:        true,
	KindStartedCompression:  true,
	KindFinishedCompression: true,
	KindSimpleProgress:      true,
}

// IsError reports whether k is a terminal-error classification.
func IsError(k ServerMessageKind) bool { return errorKinds[k] }

// IsProgress reports whether k is a non-terminal progress notification.
func IsProgress(k ServerMessageKind) bool { return progressKinds[k] }

// unsolicitedKinds are server message kinds that arrive without being
// solicited by a specific outstanding job and are routed to the
// session-wide subscription sink, if one is registered.
var unsolicitedKinds = map[ServerMessageKind]bool{
	KindPersistentRequestRemoved:      true,
	KindPersistentRequestModified:     true,
	KindSubscribedUSKUpdate:           true,
	KindSubscribedUSKRoundFinished:    true,
	KindSubscribedUSKSendingToNetwork: true,
}

// IsUnsolicited reports whether k is delivered to the subscription sink
// rather than to a specific job.
func IsUnsolicited(k ServerMessageKind) bool { return unsolicitedKinds[k] }

// terminalFor implements the §3 classification table: which server
// message kinds conclude which request commands. A kind not present for a
// given command is either an element-of-list (keeps the job open) or not
// applicable to that command at all.
var terminalFor = map[string]map[ServerMessageKind]bool{
	"ClientHello": {
		KindNodeHello:                    true,
		KindCloseConnectionDuplicateName: true,
	},
	"ListPeer": {KindPeer: true},
	"AddPeer": {
		KindPeer: true,
	},
	"ModifyPeer":     {KindPeer: true},
	"RemovePeer":     {KindPeerRemoved: true},
	"ListPeers":      {KindEndListPeers: true},
	"ListPeerNotes":  {KindEndListPeerNotes: true},
	"ModifyPeerNote": {KindPeerNote: true},
	"GetNode":        {KindNodeData: true},
	"GetConfig":      {KindConfigData: true},
	"ModifyConfig":   {KindConfigData: true},
	"TestDDARequest": {
		KindTestDDAReply: true,
	},
	"TestDDAResponse": {
		KindTestDDAComplete: true,
	},
	"GenerateSSK": {KindSSKKeypair: true},
	"ClientPut": {
		KindPutSuccessful: true,
		KindPutFetchable:  true,
		KindPutFailed:     true,
	},
	"ClientGet": {
		KindDataFound: true,
		KindAllData:   true,
		KindGetFailed: true,
	},
	"ListPersistentRequest": {KindEndListPersistentRequest: true},
	"SubscribeUSK":          {KindSubscriptionSucceeded: true},
}

// TerminalFor is a pure function of (server header, request header) that
// reports whether the server message concludes the given request command.
func TerminalFor(serverHeader, requestHeader string) bool {
	kind := Classify(serverHeader)
	if IsError(kind) {
		return true
	}
	byKind, ok := terminalFor[requestHeader]
	if !ok {
		return false
	}
	return byKind[kind]
}
