package model

import (
	"encoding/json"
	"time"
)

// SessionID uniquely identifies a connected participant. It is assigned by
// the transport layer when the connection is established and is never reused.
type SessionID string

// Session represents one connected participant
type Session struct {
	ID          SessionID `json:"id"`
	DisplayName string    `json:"nickName"`

	// Privileged is granted at join time via the credential allow-list
	Privileged bool `json:"admin"`
	// Silenced participants have their chat messages dropped
	Silenced bool `json:"muted"`

	// LastActivityAt is updated on any state-mutating action and drives
	// idle eviction
	LastActivityAt time.Time `json:"lastActivity"`

	// Profile holds the opaque avatar fields supplied at join, relayed
	// verbatim to other sessions
	Profile map[string]json.RawMessage `json:"profile,omitempty"`
}

// WireProfile returns the payload sent to other participants for this
// session: the opaque profile fields merged with the server-owned identity
// fields. The merged copy never aliases the stored profile map.
func (s *Session) WireProfile() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.Profile)+3)
	for k, v := range s.Profile {
		out[k] = v
	}
	id, _ := json.Marshal(s.ID)
	name, _ := json.Marshal(s.DisplayName)
	admin, _ := json.Marshal(s.Privileged)
	out["id"] = id
	out["nickName"] = name
	out["admin"] = admin
	return out
}

// JoinResult is the outcome of validating an identity claim. The numeric
// values are part of the wire protocol and must match the clients'.
type JoinResult int

const (
	JoinNameTaken          JoinResult = 0 // also covers reserved names
	JoinAccepted           JoinResult = 1
	JoinAcceptedPrivileged JoinResult = 2
	JoinInvalidCharacters  JoinResult = 3
	JoinWrongCredential    JoinResult = 4
	JoinNameEmpty          JoinResult = 5
)

// Accepted reports whether the claim admits a session
func (r JoinResult) Accepted() bool {
	return r == JoinAccepted || r == JoinAcceptedPrivileged
}

func (r JoinResult) String() string {
	switch r {
	case JoinNameTaken:
		return "name_taken"
	case JoinAccepted:
		return "accepted"
	case JoinAcceptedPrivileged:
		return "accepted_privileged"
	case JoinInvalidCharacters:
		return "invalid_characters"
	case JoinWrongCredential:
		return "wrong_credential"
	case JoinNameEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
