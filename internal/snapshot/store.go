package snapshot

import (
	"context"

	"github.com/galleryspace/relay/internal/model"
)

// Store persists the GameState aggregate across sessions with zero
// participants. Load runs once at process start; Save fires when the last
// participant leaves.
type Store interface {
	// Load deserializes the stored snapshot.
	// Returns model.ErrSnapshotAbsent when no snapshot exists.
	Load(ctx context.Context) (*model.GameState, error)

	// Save serializes and persists the current state
	Save(ctx context.Context, state *model.GameState) error

	// Close releases any backend resources
	Close() error
}
