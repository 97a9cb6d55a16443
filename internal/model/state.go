package model

// GameState is the aggregate root: every mutation performed by the relay
// goes through this container, and it is the unit of persistence.
//
// The Authority field is the session currently designated to resolve global
// decisions. It is empty exactly when no sessions are connected and is not
// part of the persisted snapshot (a reloaded state has no participants, so
// authority is re-derived on the first join).
type GameState struct {
	Sessions map[SessionID]*Session  `json:"players"`
	Objects  map[ObjectID]*NetObject `json:"objects"`

	// NextUniqueID is the process-wide counter behind object id allocation
	NextUniqueID uint64 `json:"UNIQUE_ID"`

	Authority SessionID `json:"-"`
}

// NewGameState returns an empty state with the counter at zero
func NewGameState() *GameState {
	return &GameState{
		Sessions: make(map[SessionID]*Session),
		Objects:  make(map[ObjectID]*NetObject),
	}
}

// Normalize repairs a state deserialized from a snapshot: nil maps become
// empty and any leftover sessions are discarded (a loaded state never has
// participants, whatever a hand-edited snapshot claims).
func (g *GameState) Normalize() {
	g.Sessions = make(map[SessionID]*Session)
	if g.Objects == nil {
		g.Objects = make(map[ObjectID]*NetObject)
	}
	g.Authority = ""
}
