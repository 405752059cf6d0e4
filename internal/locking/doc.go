// Package locking serializes mutations of a single unit.
//
// Local is an in-process keyed mutex suitable for a single daemon. Redis
// provides the same contract across processes sharing a Postgres store. Both
// give up after the configured wait and report ErrBusy.
package locking
