// Package config loads, normalizes, and validates tmsbridge configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for secrets such as
// TMSBRIDGE_TMS_TOKEN. Automation profiles and their per-locale overrides are
// declared here too, so the profile registry and the daemon read the same
// normalized view.
package config
