// Package broker executes local actions and inbound notifications against a
// unit's stored state.
//
// Every mutation runs under the unit's lock. A mutation loads the unit, calls
// the TMS with a bounded timeout, applies a lifecycle transition and persists
// the result. Persisted status changes are fanned out to the event stream,
// metrics and operator notifications.
package broker
