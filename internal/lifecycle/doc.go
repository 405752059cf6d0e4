// Package lifecycle holds the source and target status transitions applied to
// metadata units.
//
// Every function mutates the unit in place and reports whether anything
// changed, so callers only persist real transitions. The functions never talk
// to the store or the TMS; the broker provides both the inputs (TMS results,
// notification fields, profile decisions) and the persistence.
//
// Two guarantees hold for any sequence of calls short of Disassociate:
// a CURRENT target never moves back to REQUEST, PENDING or READY, and a
// target's progress never decreases while it keeps the same status.
package lifecycle
