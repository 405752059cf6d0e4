// Package notifications delivers operator alerts via ntfy.
//
// Alerts cover the moments a human has to act: a translation is ready but the
// unit's profile does not download it automatically, or an action against the
// TMS failed. When no ntfy topic is configured a no-op implementation is
// returned. Identical alerts inside the dedup window are sent once.
package notifications
