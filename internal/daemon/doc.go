// Package daemon coordinates the long-running tmsbridge process.
//
// It owns the HTTP surface: the TMS webhook endpoint that feeds the
// notification ingestion protocol, the units API through which the host
// invokes local actions and reads status, the Prometheus endpoint, and a
// health probe. A flock in the data directory prevents two daemons from
// sharing one store.
//
// Keep orchestration logic here: translation semantics live in broker,
// ingest and lifecycle while the daemon focuses on startup, shutdown, and
// request plumbing.
package daemon
