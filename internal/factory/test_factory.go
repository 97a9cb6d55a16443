package factory

import (
	"path/filepath"
	"time"

	"github.com/galleryspace/relay/internal/dependencies/mocks"
	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/services/session"
	filesnapshot "github.com/galleryspace/relay/internal/snapshot/file"
	"github.com/galleryspace/relay/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// SnapshotPath is the file store's location under a temp dir
	SnapshotPath string
}

// TestAppConfig tunes the wired test application
type TestAppConfig struct {
	SessionConfig session.Config
	IdleTimeout   time.Duration
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and a file snapshot store rooted in dir
func NewTestApp(dir string, cfg TestAppConfig) *TestApp {
	path := filepath.Join(dir, "db.json")
	store := filesnapshot.New(path)

	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	sessionCfg := cfg.SessionConfig
	if sessionCfg.MaxSessions == 0 {
		sessionCfg = session.DefaultConfig()
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}

	app := newWithDependencies(
		model.NewGameState(),
		store,
		mockClock,
		mockRandom,
		sessionCfg,
		idleTimeout,
		time.Second,
		testutil.NopLogger(),
	)

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		SnapshotPath: path,
	}
}
