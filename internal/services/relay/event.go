package relay

import "github.com/galleryspace/relay/internal/model"

// Sender delivers envelopes to one session's transport. Send is
// fire-and-forget and never blocks on delivery confirmation; Close tears
// the transport down and must be safe to call more than once.
type Sender interface {
	Send(env model.Envelope)
	Close()
}

// EventKind tags the variants of a relay loop event
type EventKind int

const (
	// KindConnect announces a new transport connection
	KindConnect EventKind = iota
	// KindMessage carries one inbound protocol message
	KindMessage
	// KindDisconnect announces a transport going away
	KindDisconnect
	// KindSweep triggers an idle eviction pass
	KindSweep
)

// Event is the unit of work for the relay loop. Every source — transport
// read pumps, the idle monitor — funnels into the same serialized queue, so
// handlers never interleave within a state mutation.
type Event struct {
	Kind    EventKind
	Session model.SessionID

	// Envelope is set for KindMessage
	Envelope model.Envelope
	// Sender is set for KindConnect
	Sender Sender
}
