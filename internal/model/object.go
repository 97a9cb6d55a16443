package model

import "encoding/json"

// ObjectID uniquely identifies a networked object. Counter-allocated ids
// look like "o12"; avatar objects use the owning session id instead.
type ObjectID string

// ObjectType classifies a networked object. The numeric values are part of
// the wire protocol and must match the clients'.
type ObjectType int

const (
	// ObjectTransient objects are destroyed when their owner leaves
	ObjectTransient ObjectType = 0
	// ObjectPrivate objects follow their owner and refuse ownership transfer
	ObjectPrivate ObjectType = 1
	// ObjectShared objects accept ownership transfer requests
	ObjectShared ObjectType = 2
	// ObjectPersistent objects additionally survive a full-empty cycle
	ObjectPersistent ObjectType = 3
)

// Transferable reports whether ownership of this type may be claimed by
// another session
func (t ObjectType) Transferable() bool {
	return t == ObjectShared || t == ObjectPersistent
}

// Transform is the spatial state of an object. The vector encodings are
// opaque to the server and relayed verbatim, last writer wins.
type Transform struct {
	Position   json.RawMessage `json:"position,omitempty"`
	Rotation   json.RawMessage `json:"rotation,omitempty"`
	LocalScale json.RawMessage `json:"localScale,omitempty"`
}

// NetObject is a registry-tracked networked entity
type NetObject struct {
	UniqueID ObjectID   `json:"uniqueId"`
	Type     ObjectType `json:"type"`

	// Owner is the session permitted to mutate and destroy this object,
	// or empty while the object is unowned. Written only by the registry.
	Owner SessionID `json:"owner"`

	// Prefab names the client-side asset to instantiate, relayed verbatim
	Prefab string `json:"prefab,omitempty"`

	Transform

	// Variables is the object's custom variable payload. Updates replace
	// the whole map, not individual keys.
	Variables map[string]json.RawMessage `json:"netVariables,omitempty"`
}
