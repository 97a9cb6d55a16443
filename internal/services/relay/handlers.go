package relay

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/galleryspace/relay/internal/model"
)

// serverOwnedProfileKeys are stripped from the join payload before it is
// stored as the session's opaque profile; the server is authoritative for
// these fields
var serverOwnedProfileKeys = []string{"id", "nickName", "admin", "muted", "lastActivity"}

// handleMessage routes one inbound protocol message to its handler.
// Unknown message kinds are dropped.
func (d *Dispatcher) handleMessage(sender model.SessionID, env model.Envelope) {
	switch env.Event {
	case model.EventJoin:
		d.handleJoin(sender, env.Data)
	case model.EventQuit:
		d.handleLeave(sender)
	case model.EventInstantiate:
		d.handleInstantiate(sender, env.Data)
	case model.EventInstantiateAvatar:
		d.handleInstantiateAvatar(sender, env.Data)
	case model.EventRegisterObject:
		d.handleRegisterObject(sender, env.Data)
	case model.EventRequestOwnership:
		d.handleRequestOwnership(sender, env.Data)
	case model.EventDestroy:
		d.handleDestroy(sender, env.Data)
	case model.EventChangeType:
		d.handleChangeType(sender, env.Data)
	case model.EventSetVariables:
		d.handleSetVariables(sender, env.Data)
	case model.EventNetFunction:
		d.handleNetFunction(sender, env.Data)
	case model.EventUpdateTransform:
		d.handleUpdateTransform(sender, env.Data)
	case model.EventChatMessage:
		d.handleChat(sender, env.Data)
	default:
		d.logger.Debug("unknown message kind", slog.String("event", env.Event))
	}
}

// handleJoin validates the identity claim and admits the session. On
// acceptance the joiner receives every other participant's profile, every
// object's state and variables, and the current authority, in that order;
// then the joiner's own profile is broadcast to everyone.
func (d *Dispatcher) handleJoin(id model.SessionID, data json.RawMessage) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		d.logger.Debug("malformed join payload", slog.String("session_id", string(id)))
		return
	}

	var claim string
	if raw, ok := payload["nickName"]; ok {
		_ = json.Unmarshal(raw, &claim)
	}

	// Capacity is checked before credential validation so full servers
	// fail fast
	if d.sessions.AtCapacity() {
		d.notify(id, serverFullNotice)
		return
	}

	result, name := d.sessions.Validate(claim)
	if !result.Accepted() {
		d.unicast(id, model.NewEnvelope(model.EventNameError, model.NameError{Num: result}))
		return
	}

	// When the space is closed only privileged credentials are admitted
	if !d.sessions.Open() && result != model.JoinAcceptedPrivileged {
		d.notify(id, serverClosedNotice)
		if sender, ok := d.senders[id]; ok {
			delete(d.senders, id)
			sender.Close()
		}
		return
	}

	name = d.filter.Clean(name)

	for _, key := range serverOwnedProfileKeys {
		delete(payload, key)
	}

	sess := d.sessions.Create(id, name, result == model.JoinAcceptedPrivileged, payload)
	d.authority.EnsureAssigned(id)

	for _, other := range d.sessions.All() {
		if other.ID == id {
			continue
		}
		d.unicast(id, model.NewEnvelope(model.EventAddPlayerData, other.WireProfile()))
	}

	// Objects orphaned with nobody left to inherit them are claimed by
	// the joiner before replay
	d.registry.ClaimOwnerless(id)
	for _, obj := range d.registry.All() {
		d.unicast(id, model.NewEnvelope(model.EventInstantiate, obj))
		if len(obj.Variables) > 0 {
			d.unicast(id, model.NewEnvelope(model.EventSetVariables, variablesPayload(obj)))
		}
	}

	d.unicast(id, model.NewEnvelope(model.EventSetAuthority, model.AuthorityChange{ID: d.authority.Current()}))

	d.broadcast(model.NewEnvelope(model.EventPlayerJoin, sess.WireProfile()))
}

// handleInstantiate creates an object under a counter-allocated id and
// announces it to everyone, the creator included
func (d *Dispatcher) handleInstantiate(sender model.SessionID, data json.RawMessage) {
	var desc model.NetObject
	if err := json.Unmarshal(data, &desc); err != nil {
		return
	}
	obj := d.registry.Create(&desc, sender)
	d.broadcast(model.NewEnvelope(model.EventInstantiate, obj))
}

// handleInstantiateAvatar creates the sender's avatar object. The sender
// already has a local representation, so the announce excludes them.
func (d *Dispatcher) handleInstantiateAvatar(sender model.SessionID, data json.RawMessage) {
	var desc model.NetObject
	if err := json.Unmarshal(data, &desc); err != nil {
		return
	}
	obj := d.registry.CreateAvatar(&desc, sender)
	d.broadcastExcept(sender, model.NewEnvelope(model.EventInstantiate, obj))
}

// handleRegisterObject records a scene-embedded object discovered by a
// session. Newly seen objects are announced to everyone; an already-known
// id replays the stored object to the discoverer so their client can
// reconcile.
func (d *Dispatcher) handleRegisterObject(sender model.SessionID, data json.RawMessage) {
	var desc model.NetObject
	if err := json.Unmarshal(data, &desc); err != nil {
		return
	}
	obj, newlySeen := d.registry.RegisterExisting(&desc, sender)
	if !newlySeen {
		d.unicast(sender, model.NewEnvelope(model.EventInstantiate, obj))
		return
	}
	d.broadcast(model.NewEnvelope(model.EventInstantiate, obj))
	if len(obj.Variables) > 0 {
		d.unicast(sender, model.NewEnvelope(model.EventSetVariables, variablesPayload(obj)))
	}
}

// handleRequestOwnership rebinds ownership of Shared and Persistent
// objects. Failures are dropped without a reply: a non-owner learns nothing
// about the object.
func (d *Dispatcher) handleRequestOwnership(sender model.SessionID, data json.RawMessage) {
	var req model.OwnershipRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	if _, err := d.registry.TransferOwnership(req.UniqueID, sender); err != nil {
		return
	}
	d.broadcast(model.NewEnvelope(model.EventChangeOwner, model.OwnerChange{
		UniqueID: req.UniqueID,
		Owner:    sender,
	}))
}

// handleDestroy removes an object on its owner's request; only the id goes
// out in the notification
func (d *Dispatcher) handleDestroy(sender model.SessionID, data json.RawMessage) {
	var ref model.ObjectRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return
	}
	if err := d.registry.Destroy(ref.ID, sender); err != nil {
		return
	}
	d.broadcast(model.NewEnvelope(model.EventDestroy, model.ObjectRef{ID: ref.ID}))
}

// handleChangeType relays a type change after an owner check. The payload
// is rebroadcast verbatim; the registry's stored type only changes through
// the object lifecycle, not this message.
func (d *Dispatcher) handleChangeType(sender model.SessionID, data json.RawMessage) {
	var req model.OwnershipRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	if !d.registry.OwnedBy(req.UniqueID, sender) {
		return
	}
	d.broadcast(model.Envelope{Event: model.EventChangeType, Data: data})
}

// handleSetVariables replaces an object's variable payload on its owner's
// request and touches the sender's activity timestamp
func (d *Dispatcher) handleSetVariables(sender model.SessionID, data json.RawMessage) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	var id model.ObjectID
	if raw, ok := payload["uniqueId"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	if err := d.registry.SetVariables(id, sender, payload); err != nil {
		return
	}
	d.sessions.Touch(sender)
	d.broadcast(model.Envelope{Event: model.EventSetVariables, Data: data})
}

// handleNetFunction relays a remote function call after an owner check
// against the current registered owner
func (d *Dispatcher) handleNetFunction(sender model.SessionID, data json.RawMessage) {
	var call model.NetFunctionCall
	if err := json.Unmarshal(data, &call); err != nil {
		return
	}
	if !d.registry.OwnedBy(call.ObjectName, sender) {
		return
	}
	d.broadcast(model.Envelope{Event: model.EventNetFunction, Data: data})
}

// handleUpdateTransform stores the new spatial state when the object is
// known and rebroadcasts unconditionally to everyone but the sender. This
// is the highest-frequency message and carries no ownership check.
func (d *Dispatcher) handleUpdateTransform(sender model.SessionID, data json.RawMessage) {
	var update model.TransformUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return
	}
	d.registry.UpdateTransform(update.UniqueID, update.Transform)
	d.sessions.Touch(sender)
	d.broadcastExcept(sender, model.Envelope{Event: model.EventUpdateTransform, Data: data})
}

// handleChat moderates and relays a chat message. Privileged senders may
// issue operator commands through the command sigil; silenced senders are
// dropped without a reply.
func (d *Dispatcher) handleChat(sender model.SessionID, data json.RawMessage) {
	sess, ok := d.sessions.Get(sender)
	if !ok {
		return
	}

	var msg model.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	clean := d.filter.Clean(msg.Message)
	if d.filter.IsObjectionable(clean) {
		d.logger.Info("objectionable message dropped", slog.String("session_id", string(sender)))
		return
	}

	if sess.Privileged && strings.HasPrefix(clean, commandSigil) {
		d.logger.Info("operator command attempt",
			slog.String("name", sess.DisplayName),
			slog.String("line", clean))
		d.commands.Execute(sender, clean)
		return
	}

	if sess.Silenced {
		return
	}

	d.broadcast(model.NewEnvelope(model.EventChatMessage, model.ChatMessage{
		ID:      string(sender),
		Message: clean,
	}))
	d.sessions.Touch(sender)
}

// variablesPayload is an object's variable map with the object id merged
// in, the shape clients expect on the setVariables channel
func variablesPayload(obj *model.NetObject) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(obj.Variables)+1)
	for k, v := range obj.Variables {
		out[k] = v
	}
	id, _ := json.Marshal(obj.UniqueID)
	out["uniqueId"] = id
	return out
}
