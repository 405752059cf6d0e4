package lifecycle

import (
	"strings"

	"tmsbridge/internal/metadata"
)

// Upload carries the identity pinned by a successful upload.
type Upload struct {
	DocumentID   string
	RevisionID   string
	SourceLocale string
	JobID        string
}

// UploadSucceeded moves an untracked or failed unit to IMPORTING and pins the
// document identity and revision.
func UploadSucceeded(unit *metadata.Unit, upload Upload) bool {
	if unit == nil || strings.TrimSpace(upload.DocumentID) == "" {
		return false
	}
	switch unit.SourceStatus {
	case metadata.SourceUntracked, metadata.SourceError:
	default:
		return false
	}
	unit.DocumentID = upload.DocumentID
	unit.RevisionID = upload.RevisionID
	if upload.SourceLocale != "" {
		unit.SourceLocale = upload.SourceLocale
	}
	if upload.JobID != "" {
		unit.JobID = upload.JobID
	}
	unit.SourceStatus = metadata.SourceImporting
	unit.Reimport = false
	unit.LastError = ""
	return true
}

// SourceFailed records a failed upload, update or cancel. A unit that never
// reached the TMS keeps no document id.
func SourceFailed(unit *metadata.Unit, message string) bool {
	if unit == nil {
		return false
	}
	if unit.SourceStatus == metadata.SourceError && unit.LastError == message {
		return false
	}
	unit.SourceStatus = metadata.SourceError
	unit.LastError = message
	return true
}

// ImportComplete finalizes an IMPORTING source. When the import was triggered
// by an update, targets are reconciled against the new source content.
// CURRENT, EDITED, ERROR and CANCELLED sources ignore the event.
func ImportComplete(unit *metadata.Unit) bool {
	if unit == nil || unit.SourceStatus != metadata.SourceImporting {
		return false
	}
	unit.SourceStatus = metadata.SourceCurrent
	unit.ImportedOnce = true
	unit.LastError = ""
	if unit.Reimport {
		unit.Reimport = false
		reconcileAfterReimport(unit)
	}
	return true
}

// ContentChanged marks the source stale after a host-side edit. Ready and
// intermediate artifacts become EDITED while the request itself stands.
func ContentChanged(unit *metadata.Unit) bool {
	if unit == nil {
		return false
	}
	switch unit.SourceStatus {
	case metadata.SourceCurrent, metadata.SourceImporting:
	default:
		return false
	}
	unit.SourceStatus = metadata.SourceEdited
	markArtifactsStale(unit)
	return true
}

// UpdateSucceeded re-pins the revision and moves the source back to
// IMPORTING. The re-import completion applies the new-source target rules.
func UpdateSucceeded(unit *metadata.Unit, revisionID string) bool {
	if unit == nil || !unit.Tracked() {
		return false
	}
	switch unit.SourceStatus {
	case metadata.SourceEdited, metadata.SourceCurrent, metadata.SourceImporting, metadata.SourceError:
	default:
		return false
	}
	if revisionID != "" {
		unit.RevisionID = revisionID
	}
	unit.SourceStatus = metadata.SourceImporting
	unit.Reimport = true
	unit.LastError = ""
	markArtifactsStale(unit)
	return true
}

// CancelSucceeded records a TMS-side cancellation of the document and all of
// its targets.
func CancelSucceeded(unit *metadata.Unit) bool {
	if unit == nil || !unit.Tracked() || unit.SourceStatus == metadata.SourceCancelled {
		return false
	}
	unit.SourceStatus = metadata.SourceCancelled
	unit.Reimport = false
	unit.LastError = ""
	for _, target := range unit.Targets {
		if target.Status == metadata.TargetCancelled {
			continue
		}
		target.Status = metadata.TargetCancelled
		target.PriorStatus = ""
		touch(target)
	}
	return true
}

// Disassociate forgets the TMS document: no document id, UNTRACKED source and
// no targets. Profile and job grouping survive.
func Disassociate(unit *metadata.Unit) bool {
	if unit == nil {
		return false
	}
	if !unit.Tracked() && unit.SourceStatus == metadata.SourceUntracked && len(unit.Targets) == 0 {
		return false
	}
	unit.DocumentID = ""
	unit.RevisionID = ""
	unit.SourceStatus = metadata.SourceUntracked
	unit.ImportedOnce = false
	unit.Reimport = false
	unit.LastError = ""
	unit.Targets = map[string]*metadata.Target{}
	return true
}

func markArtifactsStale(unit *metadata.Unit) {
	for _, target := range unit.Targets {
		switch target.Status {
		case metadata.TargetReady, metadata.TargetIntermediate:
			target.Status = metadata.TargetEdited
			target.PriorStatus = metadata.TargetPending
			target.IntermediateFetched = false
			touch(target)
		}
	}
}

func reconcileAfterReimport(unit *metadata.Unit) {
	for _, target := range unit.Targets {
		switch target.Status {
		case metadata.TargetCurrent:
			target.Status = metadata.TargetEdited
			target.PriorStatus = metadata.TargetCurrent
			touch(target)
		case metadata.TargetEdited:
			switch target.PriorStatus {
			case metadata.TargetPending, metadata.TargetRequest:
				target.Status = target.PriorStatus
				target.PriorStatus = ""
				target.Progress = 0
				touch(target)
			}
		}
	}
}
