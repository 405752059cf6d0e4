package ingest

import (
	"sort"

	"tmsbridge/internal/lifecycle"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/profile"
)

// Scope is the policy view of one unit: its enabled target locales and the
// effective policy for any locale.
type Scope struct {
	EnabledLocales []string
	Resolve        func(locale string) profile.Policy
}

// NewScope derives a Scope from a unit's profile and the configured locales.
func NewScope(p *profile.Profile, configured []string, source string) Scope {
	return Scope{
		EnabledLocales: profile.EnabledLocales(p, configured, source),
		Resolve:        func(locale string) profile.Policy { return profile.Resolve(p, locale) },
	}
}

// Enabled reports whether locale is an enabled target locale.
func (s Scope) Enabled(locale string) bool {
	idx := sort.SearchStrings(s.EnabledLocales, locale)
	return idx < len(s.EnabledLocales) && s.EnabledLocales[idx] == locale
}

func (s Scope) policy(locale string) profile.Policy {
	if s.Resolve == nil {
		return profile.Manual
	}
	return s.Resolve(locale)
}

// DocumentOutcome reports the effect of a document_uploaded event.
type DocumentOutcome struct {
	Changed bool
	// AutoRequest lists locales, sorted, the broker should request now.
	AutoRequest []string
}

// ReduceDocumentUploaded completes the import when the event says so. Once the
// source is CURRENT, every enabled locale without a target, or still in
// REQUEST, is either queued for an automatic request or seeded as REQUEST.
func ReduceDocumentUploaded(unit *metadata.Unit, ev Event, scope Scope) DocumentOutcome {
	out := DocumentOutcome{AutoRequest: []string{}}
	if unit == nil || !ev.Complete {
		return out
	}
	out.Changed = lifecycle.ImportComplete(unit)
	if unit.SourceStatus != metadata.SourceCurrent {
		return out
	}
	for _, locale := range scope.EnabledLocales {
		if target, ok := unit.Target(locale); ok && target.Status != metadata.TargetRequest {
			continue
		}
		if scope.policy(locale).AutoUpload {
			out.AutoRequest = append(out.AutoRequest, locale)
			continue
		}
		if lifecycle.MarkRequestable(unit, locale) {
			out.Changed = true
		}
	}
	return out
}

// TargetOutcome reports the effect of a target or phase event for one locale.
type TargetOutcome struct {
	Changed bool
	// Ignored is set when the locale is disabled and has no target.
	Ignored bool
	// Ready is set when the target is READY after the event.
	Ready bool
	// Download asks the broker to fetch the final artifact.
	Download bool
	// FetchIntermediate asks the broker to fetch a provisional artifact once.
	FetchIntermediate bool
}

func ignored(unit *metadata.Unit, locale string, scope Scope) bool {
	if _, ok := unit.Target(locale); ok {
		return false
	}
	return !scope.Enabled(locale)
}

// ReduceTarget applies a target event for locale.
func ReduceTarget(unit *metadata.Unit, locale string, complete bool, progress int, scope Scope) TargetOutcome {
	var out TargetOutcome
	if unit == nil {
		return out
	}
	if ignored(unit, locale, scope) {
		out.Ignored = true
		return out
	}
	if complete {
		out.Changed = lifecycle.TargetComplete(unit, locale, true)
	} else {
		out.Changed = lifecycle.TargetProgress(unit, locale, progress, true)
	}
	if target, ok := unit.Target(locale); ok && target.Status == metadata.TargetReady {
		out.Ready = true
		out.Download = scope.policy(locale).AutoDownload
	}
	return out
}

// ReducePhase applies a phase event for locale. allPhasesComplete is the
// TMS's own answer for the target; when it is true the event is a target
// completion, otherwise a provisional artifact is available.
func ReducePhase(unit *metadata.Unit, locale string, progress int, allPhasesComplete bool, scope Scope) TargetOutcome {
	if allPhasesComplete {
		return ReduceTarget(unit, locale, true, 100, scope)
	}
	var out TargetOutcome
	if unit == nil {
		return out
	}
	if ignored(unit, locale, scope) {
		out.Ignored = true
		return out
	}
	out.Changed = lifecycle.PhaseIntermediate(unit, locale, progress, true)
	if target, ok := unit.Target(locale); ok && target.Status == metadata.TargetIntermediate && !target.IntermediateFetched {
		out.FetchIntermediate = scope.policy(locale).AutoDownload
	}
	return out
}
