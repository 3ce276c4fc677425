package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Well-known tuning keys.
const (
	KeyPageSize          = "search.page_size"
	KeyAllowWhenLocked   = "search.allow_when_locked"
	KeyMaxFileSizeMB     = "ingest.max_file_size_mb"
	KeyRestartAttempts   = "supervisor.max_attempts"
	KeyConflictAttempts  = "supervisor.conflict_attempts"
	KeySendRatePerSecond = "telegram.send_rate_per_second"
)

// ConfigStore reads and writes tuning knobs from a TOML file, addressed
// by dot-notation keys. Nested TOML tables flatten on load, so
// [search] page_size = 10 is read as "search.page_size".
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore opens the store rooted at configDir, defaulting to
// ~/.shelfbot. A missing file is not an error; the store starts empty
// and callers fall back to their own defaults.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(home, ".shelfbot")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a raw value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string value; missing or mistyped keys yield "".
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := val.(string)
	return str
}

// GetInt retrieves an integer value; missing or mistyped keys yield 0.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers decode as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetBool retrieves a boolean value; missing or mistyped keys yield false.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := val.(bool)
	return b
}

// IntOr returns the key's value or def when the key is absent or not a
// positive integer. Tuning knobs never go below 1.
func (s *ConfigStore) IntOr(key string, def int) int {
	if v := s.GetInt(key); v > 0 {
		return v
	}
	return def
}

// Set stores a value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// save writes the flat key map back as nested TOML tables (caller must
// hold the lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(unflattenMap(s.data))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Load reads the TOML file, replacing in-memory state. A missing file
// resets the store to empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	s.data = flattenMap(loaded, "")
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// flattenMap converts nested maps to dot-notation keys,
// {"a": {"b": 1}} becoming {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// unflattenMap is the inverse of flattenMap: dot keys become nested
// tables so the saved file stays human-editable.
func unflattenMap(flat map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range flat {
		parts := splitKey(key)
		node := result
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}

	return result
}

func splitKey(key string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	return append(parts, key[start:])
}
