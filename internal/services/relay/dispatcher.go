package relay

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/services/authority"
	"github.com/galleryspace/relay/internal/services/command"
	"github.com/galleryspace/relay/internal/services/moderation"
	"github.com/galleryspace/relay/internal/services/registry"
	"github.com/galleryspace/relay/internal/services/session"
	"github.com/galleryspace/relay/internal/snapshot"
)

const (
	// serverSenderID identifies server-originated chat notices
	serverSenderID = "server"
	// commandSigil prefixes operator command lines in privileged chat
	commandSigil = "/"
	// eventBuffer sizes the loop's inbound queue
	eventBuffer = 256

	serverFullNotice   = "SORRY THE SERVER IS FULL. TRY AGAIN LATER."
	serverClosedNotice = "SORRY THE SPACE IS CLOSED. TRY AGAIN LATER."
)

// Config holds the dispatcher's collaborators
type Config struct {
	State       *model.GameState
	Registry    *registry.Service
	Sessions    *session.Manager
	Authority   *authority.Coordinator
	Filter      *moderation.Filter
	Store       snapshot.Store
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Dispatcher validates and rebroadcasts protocol messages. A single
// goroutine runs the loop; every handler runs to completion against the
// shared state before the next event is processed, which is what makes
// ownership checks and id allocation race-free without locking.
type Dispatcher struct {
	registry  *registry.Service
	sessions  *session.Manager
	authority *authority.Coordinator
	filter    *moderation.Filter
	commands  *command.Interpreter
	store     snapshot.Store
	logger    *slog.Logger

	idleTimeout time.Duration

	state   *model.GameState
	senders map[model.SessionID]Sender
	events  chan Event
}

// New creates a new Dispatcher
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger.With(slog.String("component", "relay"))
	d := &Dispatcher{
		registry:    cfg.Registry,
		sessions:    cfg.Sessions,
		authority:   cfg.Authority,
		filter:      cfg.Filter,
		store:       cfg.Store,
		logger:      logger,
		idleTimeout: cfg.IdleTimeout,
		state:       cfg.State,
		senders:     make(map[model.SessionID]Sender),
		events:      make(chan Event, eventBuffer),
	}
	d.commands = command.New(d, cfg.Logger)
	return d
}

// Post queues an event for the relay loop
func (d *Dispatcher) Post(ev Event) {
	d.events <- ev
}

// Sweep queues an idle eviction pass. Implements the idle monitor's sink:
// the sweep competes for the same serialized execution slot as every other
// event.
func (d *Dispatcher) Sweep() {
	d.Post(Event{Kind: KindSweep})
}

// Run consumes the event queue until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("relay loop started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("relay loop stopped")
			return
		case ev := <-d.events:
			d.Dispatch(ev)
		}
	}
}

// Dispatch handles a single event to completion
func (d *Dispatcher) Dispatch(ev Event) {
	switch ev.Kind {
	case KindConnect:
		d.handleConnect(ev.Session, ev.Sender)
	case KindMessage:
		d.handleMessage(ev.Session, ev.Envelope)
	case KindDisconnect:
		d.handleLeave(ev.Session)
	case KindSweep:
		d.handleSweep()
	}
}

// handleConnect registers the transport and acknowledges the connection.
// A connection arriving at capacity is told so up front; the capacity gate
// proper is enforced again at join time.
func (d *Dispatcher) handleConnect(id model.SessionID, sender Sender) {
	d.senders[id] = sender
	if d.sessions.AtCapacity() {
		d.notify(id, serverFullNotice)
		return
	}
	d.unicast(id, model.NewEnvelope(model.EventSocketConnect, model.ConnectAck{Num: d.sessions.Count()}))
}

// handleLeave drives the single departure path shared by explicit quits,
// transport disconnects, idle eviction, and operator kicks. Idempotent: a
// departure for an absent session only tears down the transport.
func (d *Dispatcher) handleLeave(id model.SessionID) {
	if sender, ok := d.senders[id]; ok {
		delete(d.senders, id)
		sender.Close()
	}

	if _, ok := d.sessions.Leave(id); !ok {
		return
	}

	d.broadcast(model.NewEnvelope(model.EventPlayerDisconnect, model.ObjectRef{ID: model.ObjectID(id)}))

	if newAuthority, changed := d.authority.HandleDeparture(id); changed {
		d.broadcast(model.NewEnvelope(model.EventSetAuthority, model.AuthorityChange{ID: newAuthority}))
	}

	destroyed, reassigned := d.registry.ReassignOrphans(id)
	for _, objID := range destroyed {
		d.broadcast(model.NewEnvelope(model.EventDestroy, model.ObjectRef{ID: objID}))
	}
	for _, change := range reassigned {
		d.broadcast(model.NewEnvelope(model.EventChangeOwner, change))
	}

	// The last participant leaving may precede a shutdown: sweep the
	// non-persistent objects and save what remains
	if d.sessions.Count() == 0 {
		pruned := d.registry.PruneNonPersistent()
		if err := d.store.Save(context.Background(), d.state); err != nil {
			d.logger.Error("snapshot save failed", slog.String("error", err.Error()))
		} else {
			d.logger.Info("state saved",
				slog.Int("pruned", pruned),
				slog.Int("objects", len(d.state.Objects)))
		}
	}
}

// handleSweep force-disconnects every non-privileged session idle past the
// configured threshold, through the same path as an explicit leave
func (d *Dispatcher) handleSweep() {
	for _, id := range d.sessions.Stale(d.idleTimeout) {
		d.logger.Info("evicting idle session", slog.String("session_id", string(id)))
		d.handleLeave(id)
	}
}

// Audiences

func (d *Dispatcher) broadcast(env model.Envelope) {
	for _, sender := range d.senders {
		sender.Send(env)
	}
}

func (d *Dispatcher) broadcastExcept(except model.SessionID, env model.Envelope) {
	for id, sender := range d.senders {
		if id != except {
			sender.Send(env)
		}
	}
}

func (d *Dispatcher) unicast(id model.SessionID, env model.Envelope) {
	if sender, ok := d.senders[id]; ok {
		sender.Send(env)
	}
}

// notify sends a server chat notice to one session
func (d *Dispatcher) notify(id model.SessionID, message string) {
	d.unicast(id, model.NewEnvelope(model.EventChatMessage, model.ChatMessage{
		ID:      serverSenderID,
		Message: message,
	}))
}

// Operator command surface (command.Ops)

// FindByName resolves a display name to a session id
func (d *Dispatcher) FindByName(name string) (model.SessionID, bool) {
	sess, ok := d.sessions.FindByName(name)
	if !ok {
		return "", false
	}
	return sess.ID, true
}

// SetSilenced sets a session's silence flag
func (d *Dispatcher) SetSilenced(id model.SessionID, silenced bool) {
	d.sessions.SetSilenced(id, silenced)
}

// SetOpen flips the open/closed gating flag
func (d *Dispatcher) SetOpen(open bool) {
	d.sessions.SetOpen(open)
}

// Disconnect forces a session through the departure path
func (d *Dispatcher) Disconnect(id model.SessionID) {
	d.handleLeave(id)
}

// DisconnectAll forces every connected transport through the departure path
func (d *Dispatcher) DisconnectAll() {
	ids := make([]model.SessionID, 0, len(d.senders))
	for id := range d.senders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		d.handleLeave(id)
	}
}

// Announce broadcasts a server chat message to all sessions
func (d *Dispatcher) Announce(message string) {
	d.broadcast(model.NewEnvelope(model.EventChatMessage, model.ChatMessage{
		ID:      serverSenderID,
		Message: message,
	}))
}

// Notify sends a server chat notice to one session
func (d *Dispatcher) Notify(id model.SessionID, message string) {
	d.notify(id, message)
}

// ParticipantCount returns the number of connected sessions
func (d *Dispatcher) ParticipantCount() int {
	return d.sessions.Count()
}

var _ command.Ops = (*Dispatcher)(nil)
