// Package handler implements the eltexfacts HTTP API.
//
// # Endpoints
//
//	GET    /api/devices                         inventory with collection state
//	GET    /api/devices/{name}/facts/{kind}     live fact operation
//	POST   /api/devices/{name}/collect          collect and store a snapshot
//	GET    /api/devices/{name}/snapshot         latest stored snapshot
//	GET    /api/devices/{name}/snapshot/{kind}  one fact from the latest snapshot
//	GET    /api/devices/{name}/snapshots        snapshot history, ?limit=N
//	DELETE /api/devices/{name}/snapshots        drop stored history
//	GET    /api/snapshots/{id}                  snapshot by ID
//	POST   /api/snapshots                       import an exported snapshot
//	GET    /api/inventory                       Ansible inventory
//
// Snapshot and fact responses honor ?format=json|yaml.
//
// # Errors
//
// Errors are returned as JSON with {error, details}. Unknown devices and
// missing snapshots are 404, a bad fact kind is 400, an operation the
// platform lacks is 501 and device failures (transport or unparseable
// output) are 502.
package handler
