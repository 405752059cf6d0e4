// Package services defines shared utilities consumed by the broker, the
// webhook adapter, and the TMS client.
//
// Key responsibilities:
//   - Context helpers that stamp unit ids, document ids, locales, and
//     correlation identifiers for logging.
//   - The error taxonomy (upload, update, request, download, routing, locale,
//     orphaned metadata) plus the Wrap helper that keeps both the marker and
//     the underlying cause reachable through errors.Is.
//
// Use these helpers when adding a new action so that error classification and
// log fields stay uniform across the CLI, the HTTP API, and webhook handling.
package services
