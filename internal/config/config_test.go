package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "42")
	t.Setenv("SOURCE_CHANNEL_ID", "-1001234567890")
	t.Setenv("LOG_CHANNEL_ID", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("LOCK_PATH", "")
	t.Setenv("VERBOSE", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, int64(42), cfg.OwnerID)
	assert.Equal(t, int64(-1001234567890), cfg.SourceChannelID)
	assert.Zero(t, cfg.LogChannelID)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.Verbose)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoad_BadInteger(t *testing.T) {
	setRequired(t)
	t.Setenv("OWNER_ID", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWNER_ID")
}

func TestLoad_VerboseFlag(t *testing.T) {
	setRequired(t)

	for _, v := range []string{"true", "1"} {
		t.Setenv("VERBOSE", v)
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Verbose, "VERBOSE=%s", v)
	}
}

func TestResolveLockPath_Explicit(t *testing.T) {
	cfg := &Config{LockPath: "/var/run/shelfbot.lock"}

	path, err := cfg.ResolveLockPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/run/shelfbot.lock", path)
}

func TestResolveLockPath_DerivedFromDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DataDir: dir}

	path, err := cfg.ResolveLockPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "consumer.lock"), path)
}
