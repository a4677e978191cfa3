// Package service coordinates fact collection for eltexfacts.
//
// The Collector opens a channel to a device, runs every fact operation
// through the driver and stores the result as a snapshot. A failed
// operation is recorded in the snapshot and does not stop the others.
// CollectAll runs many devices with bounded concurrency.
//
// # Metrics
//
// Metrics records per-operation latency and error counts under the
// eltexfacts namespace. FactsCollector exposes the latest stored facts of
// every device as gauges, so a Prometheus scrape never touches a switch.
//
// # Events
//
// Collection progress is published on an EventBus for the SSE stream.
package service
