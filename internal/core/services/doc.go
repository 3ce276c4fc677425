// Package services implements the core use cases over the driven
// ports: file ingestion, search with pagination, and catalog
// bookkeeping. Services return structured outcomes; all human-readable
// phrasing belongs to the presentation layer.
package services
