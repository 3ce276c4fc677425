package driven

// ConfigStore provides typed access to deployment-level runtime
// settings (page size, size limit, policy flags). Values are constant
// for the lifetime of a deployment; the catalog's own settings table
// holds the mutable flags instead.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	Set(key string, value any) error
}
