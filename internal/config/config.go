package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Snapshot backend names
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the relay's configuration surface, read once at startup
type Config struct {
	// Port is the HTTP/websocket listening port
	Port int `env:"PORT" envDefault:"3000"`

	// Admins is the privileged-identity allow-list as comma-separated
	// "name|credential" pairs
	Admins string `env:"ADMINS"`

	// ActivityTimeout is how long a non-privileged session may stay idle
	// before eviction
	ActivityTimeout time.Duration `env:"ACTIVITY_TIMEOUT" envDefault:"5m"`

	// IdleSweepInterval is the period of the idle eviction sweep
	IdleSweepInterval time.Duration `env:"IDLE_SWEEP_INTERVAL" envDefault:"1s"`

	// MaxPlayers caps concurrent sessions; -1 disables the cap
	MaxPlayers int `env:"MAX_PLAYERS" envDefault:"30"`

	// Open admits non-privileged joins at startup
	Open bool `env:"OPEN" envDefault:"true"`

	// SnapshotBackend selects the snapshot store ("file" or "redis")
	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"file"`

	// SnapshotPath is the file backend's snapshot location
	SnapshotPath string `env:"SNAPSHOT_PATH" envDefault:"db.json"`

	// RedisURL is the redis backend's connection URL
	RedisURL string `env:"REDIS_URL"`

	// StaticDir holds the client bundle served next to the relay
	StaticDir string `env:"STATIC_DIR" envDefault:"public"`

	// LogLevel sets the slog level (debug, info, warn, error)
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env if present and parses the environment
func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set directly
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.SnapshotBackend != BackendFile && cfg.SnapshotBackend != BackendRedis {
		return nil, fmt.Errorf("invalid SNAPSHOT_BACKEND %q: must be %q or %q",
			cfg.SnapshotBackend, BackendFile, BackendRedis)
	}
	if cfg.SnapshotBackend == BackendRedis && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL required when SNAPSHOT_BACKEND=%s", BackendRedis)
	}

	return &cfg, nil
}
