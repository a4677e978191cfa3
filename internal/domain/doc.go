// Package domain defines the normalized fact model produced by the Eltex
// driver.
//
// # Fact Types
//
// Facts is the device identity summary (model, serial, version, uptime,
// interface list).
//
// InterfaceMap, InterfaceIPMap and CounterMap are keyed by interface name,
// which is the join key between them. The maps are produced by independent
// commands and their key sets are never cross-validated.
//
// ARPEntry and MACEntry lists keep device order. LLDPNeighborMap groups
// neighbors by local interface.
//
// # Snapshots
//
// Snapshot bundles one full collection run for a device, including the
// error text of every fact operation that failed.
//
// # Design Principles
//
// - Plain value types with JSON and YAML tags
// - No database or external dependencies
// - Unknown values use documented sentinels (-1, "Unknown") rather than errors
package domain
