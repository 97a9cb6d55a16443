package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/snapshot"
)

// Store persists the game state as a JSON blob at a fixed path. The write
// is atomic so a crash mid-save never leaves a truncated snapshot behind.
type Store struct {
	path string
}

// New creates a file-backed snapshot store at the given path
func New(path string) *Store {
	return &Store{path: path}
}

// Ensure Store implements the interface
var _ snapshot.Store = (*Store)(nil)

// Load reads and deserializes the snapshot file
func (s *Store) Load(ctx context.Context) (*model.GameState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrSnapshotAbsent
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var state model.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	state.Normalize()
	return &state, nil
}

// Save serializes the state and atomically replaces the snapshot file
func (s *Store) Save(ctx context.Context, state *model.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend
func (s *Store) Close() error {
	return nil
}
