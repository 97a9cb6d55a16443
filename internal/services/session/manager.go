package session

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/galleryspace/relay/internal/dependencies/clock"
	"github.com/galleryspace/relay/internal/model"
)

// namePattern is the display name character whitelist
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9 !@#$%&*(),._-]+$`)

// Credential is one entry of the privileged-identity allow-list
type Credential struct {
	Name   string
	Secret string
}

// ParseCredentials parses a comma-separated list of "name|secret" pairs,
// the format of the ADMINS environment variable. Malformed entries are
// skipped.
func ParseCredentials(s string) []Credential {
	var creds []Credential
	for _, entry := range strings.Split(s, ",") {
		name, secret, ok := strings.Cut(entry, "|")
		name = strings.TrimSpace(name)
		secret = strings.TrimSpace(secret)
		if !ok || name == "" || secret == "" {
			continue
		}
		creds = append(creds, Credential{Name: name, Secret: secret})
	}
	return creds
}

// Config holds session manager settings
type Config struct {
	// MaxSessions caps concurrent participants; -1 disables the cap
	MaxSessions int
	// Open admits non-privileged joins; when false only privileged
	// credentials are accepted
	Open bool
	// Credentials is the privileged-identity allow-list
	Credentials []Credential
}

// DefaultConfig returns default session manager configuration
func DefaultConfig() Config {
	return Config{
		MaxSessions: 30,
		Open:        true,
	}
}

// Manager owns the set of connected sessions and their join/leave
// transitions. All methods are called from the relay loop.
type Manager struct {
	state  *model.GameState
	clock  clock.Clock
	logger *slog.Logger

	maxSessions int
	open        bool
	credentials []Credential
}

// New creates a new session Manager operating on the given state
func New(state *model.GameState, clock clock.Clock, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		state:       state,
		clock:       clock,
		logger:      logger.With(slog.String("component", "session")),
		maxSessions: cfg.MaxSessions,
		open:        cfg.Open,
		credentials: cfg.Credentials,
	}
}

// Validate checks a claimed display name and returns the typed result plus
// the name with any credential suffix stripped. A claim of the form
// "name|secret" is matched case-insensitively against the allow-list;
// reserved names are rejected for claimants without the right secret even
// when spelled correctly, to prevent impersonation.
func (m *Manager) Validate(claim string) (model.JoinResult, string) {
	name := strings.TrimSpace(claim)
	if name == "" {
		return model.JoinNameEmpty, ""
	}

	privileged := false
	wrongSecret := false

	if idx := strings.Index(claim, "|"); idx >= 0 {
		name = strings.TrimSpace(claim[:idx])
		secret := strings.TrimSpace(claim[idx+1:])
		for _, cred := range m.credentials {
			if !strings.EqualFold(cred.Name, name) {
				continue
			}
			if strings.EqualFold(cred.Secret, secret) {
				privileged = true
			} else {
				wrongSecret = true
			}
		}
	}

	reserved := false
	if !privileged {
		for _, cred := range m.credentials {
			if strings.EqualFold(cred.Name, name) {
				reserved = true
			}
		}
	}

	_, taken := m.FindByName(name)

	switch {
	case wrongSecret:
		return model.JoinWrongCredential, name
	case !namePattern.MatchString(name):
		return model.JoinInvalidCharacters, name
	case taken || reserved:
		return model.JoinNameTaken, name
	case privileged:
		return model.JoinAcceptedPrivileged, name
	default:
		return model.JoinAccepted, name
	}
}

// Create inserts a validated session. The caller supplies the cleaned
// display name and the opaque profile fields relayed to other sessions.
func (m *Manager) Create(id model.SessionID, name string, privileged bool, profile map[string]json.RawMessage) *model.Session {
	sess := &model.Session{
		ID:             id,
		DisplayName:    name,
		Privileged:     privileged,
		LastActivityAt: m.clock.Now(),
		Profile:        profile,
	}
	m.state.Sessions[id] = sess
	m.logger.Info("session joined",
		slog.String("session_id", string(id)),
		slog.String("name", name),
		slog.Bool("privileged", privileged),
		slog.Int("total", len(m.state.Sessions)))
	return sess
}

// Leave removes the session and returns the removed record. Idempotent: a
// second call for the same id reports absence and changes nothing.
func (m *Manager) Leave(id model.SessionID) (*model.Session, bool) {
	sess, ok := m.state.Sessions[id]
	if !ok {
		return nil, false
	}
	delete(m.state.Sessions, id)
	m.logger.Info("session left",
		slog.String("session_id", string(id)),
		slog.Int("total", len(m.state.Sessions)))
	return sess, true
}

// Get returns the session with the given id
func (m *Manager) Get(id model.SessionID) (*model.Session, bool) {
	sess, ok := m.state.Sessions[id]
	return sess, ok
}

// FindByName returns the session with the given display name,
// case-insensitive exact match
func (m *Manager) FindByName(name string) (*model.Session, bool) {
	for _, sess := range m.state.Sessions {
		if strings.EqualFold(sess.DisplayName, name) {
			return sess, true
		}
	}
	return nil, false
}

// All returns every connected session in stable id order, used to replay
// participant profiles to a joining session
func (m *Manager) All() []*model.Session {
	ids := make([]model.SessionID, 0, len(m.state.Sessions))
	for id := range m.state.Sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	sessions := make([]*model.Session, len(ids))
	for i, id := range ids {
		sessions[i] = m.state.Sessions[id]
	}
	return sessions
}

// Touch updates the session's activity timestamp to now
func (m *Manager) Touch(id model.SessionID) {
	if sess, ok := m.state.Sessions[id]; ok {
		sess.LastActivityAt = m.clock.Now()
	}
}

// SetSilenced sets the session's silence flag
func (m *Manager) SetSilenced(id model.SessionID, silenced bool) {
	if sess, ok := m.state.Sessions[id]; ok {
		sess.Silenced = silenced
	}
}

// Count returns the number of connected sessions
func (m *Manager) Count() int {
	return len(m.state.Sessions)
}

// AtCapacity reports whether the configured session cap has been reached
func (m *Manager) AtCapacity() bool {
	return m.maxSessions != -1 && len(m.state.Sessions) >= m.maxSessions
}

// Open reports whether non-privileged joins are admitted
func (m *Manager) Open() bool {
	return m.open
}

// SetOpen flips the open/closed gate
func (m *Manager) SetOpen(open bool) {
	m.open = open
}

// Stale returns the non-privileged sessions whose last activity is absent
// or older than the timeout. Privileged sessions are exempt from eviction.
func (m *Manager) Stale(timeout time.Duration) []model.SessionID {
	now := m.clock.Now()
	var stale []model.SessionID
	for id, sess := range m.state.Sessions {
		if sess.Privileged {
			continue
		}
		if sess.LastActivityAt.IsZero() || now.Sub(sess.LastActivityAt) > timeout {
			stale = append(stale, id)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return stale
}
