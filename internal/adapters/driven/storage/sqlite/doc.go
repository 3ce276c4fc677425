// Package sqlite implements the catalog store interfaces on SQLite
// using the modernc.org/sqlite driver. Schema changes live as embedded
// .up.sql migrations applied at startup.
package sqlite
