// Package file provides a TOML-backed driven.ConfigStore for
// deployment tuning knobs: page size, the ingest size limit, the
// search-while-locked policy, and supervisor restart bounds. Keys use
// dot notation matching the TOML table layout, e.g. "search.page_size".
package file
