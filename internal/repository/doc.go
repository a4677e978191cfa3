// Package repository defines the snapshot storage interface for eltexfacts.
//
// A snapshot is the full set of facts collected from one device in one run,
// together with the per-operation errors of that run. The sqlite subpackage
// implements the interface on an embedded SQLite database.
//
// # SQLite Implementation
//
// Snapshots are stored as JSON documents keyed by ID, with the device name
// and collection time kept in indexed columns for history queries. The
// schema is created on startup.
package repository
