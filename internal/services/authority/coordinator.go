package authority

import (
	"log/slog"
	"sort"

	"github.com/galleryspace/relay/internal/dependencies/random"
	"github.com/galleryspace/relay/internal/model"
)

// Coordinator owns the single process-wide authority designation. Exactly
// one session holds authority whenever at least one session is connected;
// the pointer is empty otherwise. All methods are called from the relay
// loop.
type Coordinator struct {
	state  *model.GameState
	random random.Random
	logger *slog.Logger
}

// New creates a new authority Coordinator operating on the given state
func New(state *model.GameState, random random.Random, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		state:  state,
		random: random,
		logger: logger.With(slog.String("component", "authority")),
	}
}

// Current returns the session currently designated as authority, or empty
// if no session is connected
func (c *Coordinator) Current() model.SessionID {
	return c.state.Authority
}

// EnsureAssigned lazily designates the joining session as authority when
// the pointer is empty. Returns true if the designation changed.
func (c *Coordinator) EnsureAssigned(joiner model.SessionID) bool {
	if c.state.Authority != "" {
		return false
	}
	c.state.Authority = joiner
	c.logger.Info("authority assigned", slog.String("session_id", string(joiner)))
	return true
}

// HandleDeparture re-derives the designation after a session leaves. If the
// departed session held authority, a new authority is picked uniformly at
// random among the remaining sessions, or the pointer is cleared when none
// remain. Returns the new designation and whether it changed.
func (c *Coordinator) HandleDeparture(departed model.SessionID) (model.SessionID, bool) {
	if c.state.Authority != departed {
		return c.state.Authority, false
	}

	c.state.Authority = ""
	if len(c.state.Sessions) > 0 {
		ids := make([]model.SessionID, 0, len(c.state.Sessions))
		for id := range c.state.Sessions {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		c.state.Authority = ids[c.random.Intn(len(ids))]
	}

	c.logger.Info("authority migrated",
		slog.String("from", string(departed)),
		slog.String("to", string(c.state.Authority)))
	return c.state.Authority, true
}
