package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/galleryspace/relay/internal/dependencies/clock"
	"github.com/galleryspace/relay/internal/dependencies/random"
	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/services/authority"
	"github.com/galleryspace/relay/internal/services/idle"
	"github.com/galleryspace/relay/internal/services/moderation"
	"github.com/galleryspace/relay/internal/services/registry"
	"github.com/galleryspace/relay/internal/services/relay"
	"github.com/galleryspace/relay/internal/services/session"
	"github.com/galleryspace/relay/internal/snapshot"
	filesnapshot "github.com/galleryspace/relay/internal/snapshot/file"
	redissnapshot "github.com/galleryspace/relay/internal/snapshot/redis"
)

// Snapshot backend constants
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// App contains all wired application components
type App struct {
	// Shared state, mutated only by the relay loop
	State *model.GameState

	// Snapshot persistence
	Store snapshot.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry   *registry.Service
	Sessions   *session.Manager
	Authority  *authority.Coordinator
	Filter     *moderation.Filter
	Dispatcher *relay.Dispatcher
	Monitor    *idle.Monitor
}

// Config holds configuration for the application factory
type Config struct {
	// SessionConfig holds capacity, open gate and admin credentials
	// If zero value, defaults to session.DefaultConfig()
	SessionConfig session.Config
	// IdleTimeout is the inactivity threshold for eviction
	IdleTimeout time.Duration
	// SweepInterval is the idle monitor's period
	SweepInterval time.Duration
	// Backend selects the snapshot store ("file" or "redis")
	// If empty, defaults to "file"
	Backend string
	// SnapshotPath is the file backend's location
	SnapshotPath string
	// RedisConfig holds Redis connection settings (required if Backend is "redis")
	RedisConfig *redissnapshot.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired. The snapshot
// is loaded here; a missing or unreadable snapshot starts the relay with a
// fresh state rather than failing.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store snapshot.Store
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		path := cfg.SnapshotPath
		if path == "" {
			path = "db.json"
		}
		store = filesnapshot.New(path)
	case BackendRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when Backend is redis")
		}
		redisStore, err := redissnapshot.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid Backend: must be 'file' or 'redis'")
	}

	state := loadState(store, logger)

	sessionCfg := cfg.SessionConfig
	if sessionCfg.MaxSessions == 0 {
		sessionCfg = session.DefaultConfig()
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval == 0 {
		sweepInterval = time.Second
	}

	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(state, store, clk, rnd, sessionCfg, idleTimeout, sweepInterval, logger), nil
}

// loadState restores the persisted state, falling back to a fresh one when
// the snapshot is absent or unreadable
func loadState(store snapshot.Store, logger *slog.Logger) *model.GameState {
	state, err := store.Load(context.Background())
	if err != nil {
		if !errors.Is(err, model.ErrSnapshotAbsent) {
			logger.Warn("snapshot unreadable, starting fresh", slog.Any("error", err))
		}
		return model.NewGameState()
	}
	logger.Info("snapshot loaded", slog.Int("objects", len(state.Objects)))
	return state
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	state *model.GameState,
	store snapshot.Store,
	clk clock.Clock,
	rnd random.Random,
	sessionCfg session.Config,
	idleTimeout time.Duration,
	sweepInterval time.Duration,
	logger *slog.Logger,
) *App {
	registryService := registry.New(state, rnd, logger)
	sessionManager := session.New(state, clk, sessionCfg, logger)
	authorityCoordinator := authority.New(state, rnd, logger)
	filter := moderation.New()

	dispatcher := relay.New(relay.Config{
		State:       state,
		Registry:    registryService,
		Sessions:    sessionManager,
		Authority:   authorityCoordinator,
		Filter:      filter,
		Store:       store,
		IdleTimeout: idleTimeout,
		Logger:      logger,
	})

	monitor := idle.New(sweepInterval, dispatcher, logger)

	return &App{
		State:      state,
		Store:      store,
		Clock:      clk,
		Random:     rnd,
		Registry:   registryService,
		Sessions:   sessionManager,
		Authority:  authorityCoordinator,
		Filter:     filter,
		Dispatcher: dispatcher,
		Monitor:    monitor,
	}
}
