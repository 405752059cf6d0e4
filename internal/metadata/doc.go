// Package metadata persists translation units and their per-locale targets.
//
// A Unit is the local record of one host resource sent (or about to be sent)
// to the TMS: its pinned revision, the document id the TMS assigned, the
// source status, and one Target per requested locale. The Store keeps units
// keyed by (entity_kind, entity_id) with a unique secondary index on
// document_id, and writes a unit together with its targets in one
// transaction. SQLite is the default backend; Postgres is available for
// deployments that run several daemons against one database.
//
// Status values live here so that the store can validate what it reads back;
// the rules for moving between them live in the lifecycle package.
package metadata
