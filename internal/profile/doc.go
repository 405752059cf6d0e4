// Package profile resolves automation policy for a unit and target locale.
//
// A Profile says whether content is uploaded and requested automatically and
// whether ready translations are downloaded automatically. Per-locale
// overrides marked "custom" replace only the fields they set. Resolve is pure;
// the Registry assembles the built-in and configured profiles once at startup.
package profile
