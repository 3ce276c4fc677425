// Package config loads the bootstrap settings a deployment cannot run
// without: the bot token, the owner, the source channel, and the local
// paths. These come from the environment (optionally via a .env file);
// tunable runtime knobs live in the TOML config store instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/shelfbot/shelfbot/internal/logger"
)

// Config is the process bootstrap configuration.
type Config struct {
	// BotToken authenticates against the Telegram Bot API.
	BotToken string

	// OwnerID is the Telegram user ID allowed to run admin commands.
	OwnerID int64

	// SourceChannelID is the channel whose document posts are ingested.
	SourceChannelID int64

	// LogChannelID receives operational notifications. Zero disables them.
	LogChannelID int64

	// ListenAddr is the probe HTTP server bind address.
	ListenAddr string

	// DataDir holds the SQLite database. Empty means ~/.shelfbot/data.
	DataDir string

	// LockPath is the single-instance lock file. Empty means
	// <DataDir>/consumer.lock resolved at startup.
	LockPath string

	// Verbose enables debug logging.
	Verbose bool
}

// Load reads the configuration from the environment. A .env file in
// the working directory is merged in first when present; real
// environment variables win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not read .env file: %v", err)
	}

	cfg := &Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		ListenAddr: envOr("LISTEN_ADDR", ":8080"),
		DataDir:    os.Getenv("DATA_DIR"),
		LockPath:   os.Getenv("LOCK_PATH"),
		Verbose:    os.Getenv("VERBOSE") == "true" || os.Getenv("VERBOSE") == "1",
	}

	var err error
	if cfg.OwnerID, err = envInt64("OWNER_ID"); err != nil {
		return nil, err
	}
	if cfg.SourceChannelID, err = envInt64("SOURCE_CHANNEL_ID"); err != nil {
		return nil, err
	}
	if cfg.LogChannelID, err = envInt64("LOG_CHANNEL_ID"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.OwnerID == 0 {
		missing = append(missing, "OWNER_ID")
	}
	if c.SourceChannelID == 0 {
		missing = append(missing, "SOURCE_CHANNEL_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

// ResolveLockPath returns the lock file path, deriving it from the data
// directory when not set explicitly.
func (c *Config) ResolveLockPath() (string, error) {
	if c.LockPath != "" {
		return c.LockPath, nil
	}
	dir := c.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".shelfbot", "data")
	}
	return filepath.Join(dir, "consumer.lock"), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, nil
}
