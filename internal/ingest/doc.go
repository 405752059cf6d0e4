// Package ingest turns inbound TMS notifications into validated events and
// reduces them against a unit.
//
// Parsing accepts query/form values or a JSON body, normalizes locales and
// validates the canonical payload against an embedded JSON schema. The
// reducers are pure: they apply lifecycle transitions and report which
// follow-up TMS calls (requests, downloads) the broker should make. A Deduper
// short-circuits exact replays inside a time window.
package ingest
