// Package main hosts the tmsbridge CLI entrypoint and command graph.
//
// The Cobra-based command tree exposes every local translation action
// (upload, check, request, download, update, cancel, disassociate), status
// listing, profile inspection, configuration scaffolding, and the daemon
// itself through `tmsbridge serve`. Actions run in-process against the
// metadata store; configure [locking] backend = "redis" when the CLI and a
// daemon on another host share a Postgres store.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
