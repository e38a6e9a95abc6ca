package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends selected by the connection string scheme.
const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrMissingDatabaseURL is returned when no connection string is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL (or MONGO_URL) is not set")

// Config holds all application configuration
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	SeedData bool   `env:"SEED_DATA" envDefault:"false"`

	// DatabaseURL takes precedence over MongoURL.
	DatabaseURL       string        `env:"DATABASE_URL"`
	MongoURL          string        `env:"MONGO_URL"`
	DatabaseName      string        `env:"DATABASE_NAME" envDefault:"school"`
	MongoTransactions bool          `env:"MONGO_TRANSACTIONS" envDefault:"false"`
	ConnectTimeout    time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ConnectionString() == "" {
		return nil, ErrMissingDatabaseURL
	}
	if _, err := cfg.Backend(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConnectionString returns the configured store URL.
func (c *Config) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.MongoURL
}

// Backend derives the store backend from the connection string scheme.
func (c *Config) Backend() (string, error) {
	u, err := url.Parse(c.ConnectionString())
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	case "redis", "rediss":
		return BackendRedis, nil
	case "memory":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("unsupported connection string scheme %q", u.Scheme)
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
