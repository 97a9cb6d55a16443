package cli

import (
	"os"
	"time"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Name      string
	Secret    string
	Timeout   time.Duration
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("RELAYCTL_SERVER", "ws://localhost:3000/ws"),
		Name:      getEnvOrDefault("RELAYCTL_NAME", "operator"),
		Secret:    os.Getenv("RELAYCTL_SECRET"),
		Timeout:   10 * time.Second,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
