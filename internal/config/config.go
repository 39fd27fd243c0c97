// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// EncryptionKey is the optional override key. It is admitted into the key
	// store on startup if not already present.
	EncryptionKey string
	// KeyFile is the path of the legacy key file. "~" is expanded by the key
	// source, not here.
	KeyFile     string
	DBPath      string
	ListenAddr  string
	InitTimeout time.Duration
	LogLevel    slog.Level
}

// HasEncryptionKey returns true when an override key is configured.
func (c *Config) HasEncryptionKey() bool {
	return c.EncryptionKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: KEYSYNC_ENCRYPTION_KEY (no default),
// KEYSYNC_KEY_FILE (~/.keysync/config), KEYSYNC_DB_PATH (keysync.db),
// KEYSYNC_LISTEN_ADDR (127.0.0.1:8080), KEYSYNC_INIT_TIMEOUT (2m),
// KEYSYNC_LOG_LEVEL (info).
func Load() (*Config, error) {
	keyFile := "~/.keysync/config"
	if v, ok := os.LookupEnv("KEYSYNC_KEY_FILE"); ok {
		keyFile = v
	}

	dbPath := "keysync.db"
	if v, ok := os.LookupEnv("KEYSYNC_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("KEYSYNC_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	initTimeout := 2 * time.Minute
	if v, ok := os.LookupEnv("KEYSYNC_INIT_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("KEYSYNC_INIT_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("KEYSYNC_INIT_TIMEOUT must be positive, got %s", parsed)
		}
		initTimeout = parsed
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("KEYSYNC_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return nil, fmt.Errorf("KEYSYNC_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		EncryptionKey: os.Getenv("KEYSYNC_ENCRYPTION_KEY"),
		KeyFile:       keyFile,
		DBPath:        dbPath,
		ListenAddr:    listenAddr,
		InitTimeout:   initTimeout,
		LogLevel:      logLevel,
	}, nil
}
