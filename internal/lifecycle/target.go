package lifecycle

import (
	"time"

	"tmsbridge/internal/metadata"
)

// MarkRequestable seeds a REQUEST target for a locale that has none.
// Requires a CURRENT source.
func MarkRequestable(unit *metadata.Unit, locale string) bool {
	if unit == nil || unit.SourceStatus != metadata.SourceCurrent {
		return false
	}
	if _, ok := unit.Target(locale); ok {
		return false
	}
	ensureTargets(unit)
	unit.Targets[locale] = &metadata.Target{Locale: locale, Status: metadata.TargetRequest}
	return true
}

// RequestSucceeded records an accepted translation request. Targets that are
// already PENDING or further along are left alone.
func RequestSucceeded(unit *metadata.Unit, locale string) bool {
	if unit == nil || !unit.Tracked() {
		return false
	}
	target, ok := unit.Target(locale)
	if !ok {
		ensureTargets(unit)
		unit.Targets[locale] = &metadata.Target{Locale: locale, Status: metadata.TargetPending}
		return true
	}
	switch target.Status {
	case metadata.TargetRequest, metadata.TargetEdited, metadata.TargetError,
		metadata.TargetCancelled, metadata.TargetUntracked:
	default:
		return false
	}
	target.Status = metadata.TargetPending
	target.PriorStatus = ""
	target.Progress = 0
	target.IntermediateFetched = false
	target.LastError = ""
	touch(target)
	return true
}

// TargetFailed records a hard request or download failure for locale.
// CURRENT targets keep their status and only record the message.
func TargetFailed(unit *metadata.Unit, locale, message string) bool {
	if unit == nil {
		return false
	}
	target, ok := unit.Target(locale)
	if !ok {
		ensureTargets(unit)
		unit.Targets[locale] = &metadata.Target{Locale: locale, Status: metadata.TargetError, LastError: message}
		return true
	}
	if target.LastError == message && (target.Status == metadata.TargetError || target.Status == metadata.TargetCurrent) {
		return false
	}
	if target.Status == metadata.TargetCurrent {
		// A failed re-download leaves the artifact already held intact.
		target.LastError = message
		touch(target)
		return true
	}
	if target.Status != metadata.TargetError {
		target.PriorStatus = ""
	}
	target.Status = metadata.TargetError
	target.LastError = message
	touch(target)
	return true
}

// TargetProgress applies an incomplete target report. A missing target is
// created only when the locale is enabled for the unit.
func TargetProgress(unit *metadata.Unit, locale string, progress int, enabled bool) bool {
	if unit == nil || !unit.Tracked() {
		return false
	}
	progress = clampProgress(progress)
	target, ok := unit.Target(locale)
	if !ok {
		if !enabled {
			return false
		}
		ensureTargets(unit)
		unit.Targets[locale] = &metadata.Target{Locale: locale, Status: metadata.TargetPending, Progress: progress}
		return true
	}
	switch target.Status {
	case metadata.TargetRequest:
		target.Status = metadata.TargetPending
		target.Progress = progress
		touch(target)
		return true
	case metadata.TargetPending, metadata.TargetIntermediate:
		return raiseProgress(target, progress)
	default:
		return false
	}
}

// PhaseIntermediate applies a phase report for a document whose phases are not
// all complete: a provisional artifact is available.
func PhaseIntermediate(unit *metadata.Unit, locale string, progress int, enabled bool) bool {
	if unit == nil || !unit.Tracked() {
		return false
	}
	progress = clampProgress(progress)
	target, ok := unit.Target(locale)
	if !ok {
		if !enabled {
			return false
		}
		ensureTargets(unit)
		unit.Targets[locale] = &metadata.Target{Locale: locale, Status: metadata.TargetIntermediate, Progress: progress}
		return true
	}
	switch target.Status {
	case metadata.TargetRequest, metadata.TargetPending:
		target.Status = metadata.TargetIntermediate
		target.IntermediateFetched = false
		if progress > target.Progress {
			target.Progress = progress
		}
		touch(target)
		return true
	case metadata.TargetIntermediate:
		return raiseProgress(target, progress)
	default:
		return false
	}
}

// TargetComplete moves a finished target to READY. A never-imported IMPORTING
// source is completed first, since the TMS cannot finish a translation of a
// document it has not imported.
func TargetComplete(unit *metadata.Unit, locale string, enabled bool) bool {
	if unit == nil || !unit.Tracked() {
		return false
	}
	changed := false
	if !unit.ImportedOnce && unit.SourceStatus == metadata.SourceImporting {
		changed = ImportComplete(unit)
	}
	if !unit.ImportedOnce {
		return changed
	}
	target, ok := unit.Target(locale)
	if !ok {
		if !enabled {
			return changed
		}
		ensureTargets(unit)
		unit.Targets[locale] = &metadata.Target{Locale: locale, Status: metadata.TargetReady, Progress: 100}
		return true
	}
	switch target.Status {
	case metadata.TargetRequest, metadata.TargetPending, metadata.TargetIntermediate,
		metadata.TargetEdited, metadata.TargetError:
	default:
		return changed
	}
	target.Status = metadata.TargetReady
	target.PriorStatus = ""
	target.Progress = 100
	target.IntermediateFetched = false
	target.LastError = ""
	touch(target)
	return true
}

// DownloadSucceeded records a retrieved artifact. READY, EDITED and ERROR
// targets become CURRENT; an INTERMEDIATE target only remembers that its
// provisional artifact was fetched. Other states are unchanged.
func DownloadSucceeded(unit *metadata.Unit, locale string) bool {
	if unit == nil {
		return false
	}
	target, ok := unit.Target(locale)
	if !ok {
		return false
	}
	switch target.Status {
	case metadata.TargetIntermediate:
		if target.IntermediateFetched {
			return false
		}
		target.IntermediateFetched = true
		touch(target)
		return true
	case metadata.TargetReady, metadata.TargetEdited, metadata.TargetError:
		if !unit.ImportedOnce {
			return false
		}
		target.Status = metadata.TargetCurrent
		target.PriorStatus = ""
		target.Progress = 100
		target.LastError = ""
		touch(target)
		return true
	default:
		return false
	}
}

func raiseProgress(target *metadata.Target, progress int) bool {
	if progress <= target.Progress {
		return false
	}
	target.Progress = progress
	touch(target)
	return true
}

func clampProgress(progress int) int {
	switch {
	case progress < 0:
		return 0
	case progress > 100:
		return 100
	default:
		return progress
	}
}

func ensureTargets(unit *metadata.Unit) {
	if unit.Targets == nil {
		unit.Targets = map[string]*metadata.Target{}
	}
}

// touch clears the timestamp so the store stamps the transition time.
func touch(target *metadata.Target) {
	target.UpdatedAt = time.Time{}
}
