// Package driven defines the interfaces the core depends on: the
// catalog store, the outbound notifier and the runtime config store.
// Adapters implement these; the core never imports an adapter.
package driven
