// Package logging assembles structured slog loggers and formatting helpers used
// across tmsbridge.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so broker and webhook code tag log lines
// with unit ids, document ids, locales, and request ids. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
