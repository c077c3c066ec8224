package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds server configuration. Fields can be populated from the
// environment with ParseEnv and overridden by flags in cmd/server.
type Config struct {
	ListenAddr  string        `env:"CHATNET_LISTEN_ADDR"`  // HTTP bind address for /ws and /api (e.g. ":8080")
	MetricsAddr string        `env:"CHATNET_METRICS_ADDR"` // HTTP bind address for /metrics endpoint (empty = disabled)
	DBPath      string        `env:"CHATNET_DB_PATH"`      // SQLite database path (empty = in-memory store)
	JWTSecret   string        `env:"CHATNET_JWT_SECRET"`   // HMAC secret for bearer tokens, required
	TokenTTL    time.Duration `env:"CHATNET_TOKEN_TTL"`    // token lifetime for /api/login
	RoomsFile   string        `env:"CHATNET_ROOMS_FILE"`   // YAML file defining rooms to create on startup
	Ambient     bool          `env:"CHATNET_AMBIENT"`      // enable the ambient room responder

	// CLI-only actions (run and exit)
	ExportUsers bool // export all users as YAML and exit
	ExportRooms bool // export all rooms as YAML and exit
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":8081",
		DBPath:      "chatnet.db",
		TokenTTL:    24 * time.Hour,
		Ambient:     true,
	}
}

// ParseEnv overlays CHATNET_* environment variables onto the config.
func (c *Config) ParseEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("server: parse env: %w", err)
	}
	return nil
}

// Validate checks that the config is runnable.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("server: listen address is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("server: JWT secret is required (set CHATNET_JWT_SECRET)")
	}
	return nil
}
