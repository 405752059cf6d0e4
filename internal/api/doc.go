// Package api defines wire-format types and converters shared by the HTTP
// server and the CLI. It translates metadata units into transport-friendly
// DTOs so consumers can render status without coupling to store types.
//
// # Key Types
//
// Unit: transport representation of a unit with its source status, document
// id, pinned revision and per-locale targets.
//
// Target: one locale's status, progress and last error.
//
// DisassociateReport: outcome of a bulk disassociation.
//
// Policy: the effective automation policy for one locale of a profile.
//
// # Converters
//
// FromUnit / FromUnits: metadata.Unit -> Unit with targets in locale order.
//
// FromReport: broker.DisassociateReport -> DisassociateReport.
//
// FromPolicies: broker.LocalePolicy -> Policy with display names.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses are exposed as their upper-case
// store values. Timestamps use RFC3339 with milliseconds. The webhook
// response is not defined here; it is ingest.Decision, whose JSON shape is
// fixed by the TMS contract.
package api
