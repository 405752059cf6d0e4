// Package events publishes unit status changes to an outbound stream so
// downstream systems can react without polling the daemon.
//
// Kafka is used when [events].brokers is configured; otherwise events are
// discarded. Publishing is best-effort: the broker logs failures and never
// rolls back a persisted transition because an event could not be sent.
package events
