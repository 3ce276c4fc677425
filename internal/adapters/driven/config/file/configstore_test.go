package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_EmptyStart(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get(KeyPageSize)
	assert.False(t, ok)
	assert.Equal(t, 0, store.GetInt(KeyPageSize))
	assert.Equal(t, "", store.GetString("anything"))
	assert.False(t, store.GetBool(KeyAllowWhenLocked))
}

func TestSetAndReload(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyPageSize, 25))
	require.NoError(t, store.Set(KeyAllowWhenLocked, true))
	require.NoError(t, store.Set("telegram.owner_note", "primary deployment"))

	// Fresh store sees the persisted values.
	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 25, reloaded.GetInt(KeyPageSize))
	assert.True(t, reloaded.GetBool(KeyAllowWhenLocked))
	assert.Equal(t, "primary deployment", reloaded.GetString("telegram.owner_note"))
}

func TestLoad_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	raw := "[search]\npage_size = 15\nallow_when_locked = true\n\n[ingest]\nmax_file_size_mb = 50\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(raw), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 15, store.GetInt(KeyPageSize))
	assert.True(t, store.GetBool(KeyAllowWhenLocked))
	assert.Equal(t, 50, store.GetInt(KeyMaxFileSizeMB))
}

func TestSave_RoundTripsNestedKeys(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyPageSize, 10))
	require.NoError(t, store.Set(KeyMaxFileSizeMB, 100))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[search]")
	assert.Contains(t, string(data), "[ingest]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.GetInt(KeyPageSize))
	assert.Equal(t, 100, reloaded.GetInt(KeyMaxFileSizeMB))
}

func TestIntOr(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 10, store.IntOr(KeyPageSize, 10))

	require.NoError(t, store.Set(KeyPageSize, 30))
	assert.Equal(t, 30, store.IntOr(KeyPageSize, 10))

	// Non-positive values fall back too.
	require.NoError(t, store.Set(KeyPageSize, 0))
	assert.Equal(t, 10, store.IntOr(KeyPageSize, 10))
}

func TestGet_MistypedValues(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyPageSize, "not a number"))

	assert.Equal(t, 0, store.GetInt(KeyPageSize))
	assert.Equal(t, "not a number", store.GetString(KeyPageSize))
	assert.False(t, store.GetBool(KeyPageSize))
}
