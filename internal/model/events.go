package model

import "encoding/json"

// Event names on the transport boundary. These are the original protocol
// names and must match the clients'.
const (
	// Inbound (client -> server)
	EventJoin              = "avatarData"
	EventQuit              = "quit"
	EventInstantiate       = "instantiate"
	EventInstantiateAvatar = "instantiateAvatar"
	EventRegisterObject    = "registerObject"
	EventRequestOwnership  = "requestOwnership"
	EventDestroy           = "destroy"
	EventChangeType        = "changeType"
	EventSetVariables      = "setVariables"
	EventNetFunction       = "netFunction"
	EventUpdateTransform   = "updateTransform"
	EventChatMessage       = "message"

	// Outbound only (server -> client)
	EventSocketConnect    = "socketConnect"
	EventNameError        = "nameError"
	EventAddPlayerData    = "addPlayerData"
	EventPlayerJoin       = "playerJoin"
	EventPlayerDisconnect = "playerDisconnect"
	EventSetAuthority     = "setAuthority"
	EventChangeOwner      = "changeOwner"
)

// Envelope is a named message with a payload, the unit of exchange on the
// per-session event channel
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals v as the payload of a named message. Marshal
// failures produce an empty payload rather than an error: every payload
// type in this package is marshalable and broadcast is best-effort.
func NewEnvelope(event string, v any) Envelope {
	data, err := json.Marshal(v)
	if err != nil {
		data = nil
	}
	return Envelope{Event: event, Data: data}
}

// Outbound payload types

// ConnectAck confirms the transport connection and reports the current
// participant count
type ConnectAck struct {
	Num int `json:"num"`
}

// NameError carries the typed join rejection reason
type NameError struct {
	Num JoinResult `json:"num"`
}

// AuthorityChange announces the session currently holding authority, or an
// empty id when none remains
type AuthorityChange struct {
	ID SessionID `json:"id"`
}

// OwnerChange announces the rebinding of an object's owner
type OwnerChange struct {
	UniqueID ObjectID  `json:"uniqueId"`
	Owner    SessionID `json:"owner"`
}

// ObjectRef names an object by id, used for destroy notifications
type ObjectRef struct {
	ID ObjectID `json:"id"`
}

// ChatMessage is a relayed chat payload. ID is the sending session, or
// "server" for operator announcements and notices.
type ChatMessage struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Inbound payload types

// OwnershipRequest asks to claim ownership of an object
type OwnershipRequest struct {
	UniqueID ObjectID `json:"uniqueId"`
}

// NetFunctionCall is a remote function invocation routed through the relay.
// The full payload is rebroadcast verbatim; the server only reads the
// target object name for the owner check.
type NetFunctionCall struct {
	ObjectName ObjectID `json:"objectName"`
}

// TransformUpdate carries an object's new spatial state
type TransformUpdate struct {
	UniqueID ObjectID `json:"uniqueId"`
	Transform
}
