// Package simulator implements a local AuthVital-compatible identity server
// used to develop and test SDK integrations without platform access.
package simulator

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	ErrMissingListenAddr = errors.New("listen_addr is required")
	ErrMissingAdminToken = errors.New("admin_token is required")
	ErrMissingSigningKey = errors.New("signing_key is required")
	ErrInvalidTokenTTL   = errors.New("token_ttl must be positive")
)

// Config holds the simulator configuration
type Config struct {
	ListenAddr string        // Address the HTTP server binds to (default: ":9096")
	DBPath     string        // SQLite database path (default: "./authvital-sim.db")
	AdminToken string        // Bearer token guarding the admin API
	SigningKey string        // HMAC key used to sign issued tokens
	TokenTTL   time.Duration // Lifetime of issued tokens (default: 1h)
	LogLevel   string        // Log level: debug, info, warn, error
	LogFormat  string        // Log format: json or text
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":9096",
		DBPath:     "./authvital-sim.db",
		TokenTTL:   time.Hour,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// LoadFromEnv loads configuration from SIM_* environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{
		ListenAddr: getEnv("SIM_LISTEN_ADDR", ":9096"),
		DBPath:     getEnv("SIM_DB_PATH", "./authvital-sim.db"),
		AdminToken: getEnv("SIM_ADMIN_TOKEN", ""),
		SigningKey: getEnv("SIM_SIGNING_KEY", ""),
		TokenTTL:   time.Duration(getEnvInt("SIM_TOKEN_TTL_SECONDS", 3600)) * time.Second,
		LogLevel:   getEnv("SIM_LOG_LEVEL", "info"),
		LogFormat:  getEnv("SIM_LOG_FORMAT", "json"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrMissingListenAddr
	}
	if c.AdminToken == "" {
		return ErrMissingAdminToken
	}
	if c.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}
