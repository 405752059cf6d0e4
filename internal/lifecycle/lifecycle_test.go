package lifecycle_test

import (
	"testing"

	"tmsbridge/internal/lifecycle"
	"tmsbridge/internal/metadata"
)

func newUnit() *metadata.Unit {
	return metadata.NewUnit(metadata.Ref{Kind: "node", ID: "1"}, "")
}

func importedUnit(t *testing.T) *metadata.Unit {
	t.Helper()
	unit := newUnit()
	if !lifecycle.UploadSucceeded(unit, lifecycle.Upload{DocumentID: "doc", RevisionID: "1", SourceLocale: "en"}) {
		t.Fatal("upload should change unit")
	}
	if !lifecycle.ImportComplete(unit) {
		t.Fatal("import complete should change unit")
	}
	return unit
}

func withTarget(unit *metadata.Unit, locale string, status metadata.TargetStatus) *metadata.Unit {
	unit.Targets[locale] = &metadata.Target{Locale: locale, Status: status}
	return unit
}

func TestUploadPinsIdentity(t *testing.T) {
	unit := newUnit()
	changed := lifecycle.UploadSucceeded(unit, lifecycle.Upload{
		DocumentID:   "doc-1",
		RevisionID:   "7",
		SourceLocale: "en",
		JobID:        "job",
	})
	if !changed {
		t.Fatal("expected upload to change unit")
	}
	if unit.SourceStatus != metadata.SourceImporting || unit.DocumentID != "doc-1" || unit.RevisionID != "7" || unit.JobID != "job" {
		t.Fatalf("unexpected unit after upload: %+v", unit)
	}
	if lifecycle.UploadSucceeded(unit, lifecycle.Upload{DocumentID: "doc-2"}) {
		t.Fatal("upload must not replace an importing document")
	}
	if unit.DocumentID != "doc-1" {
		t.Fatalf("document id changed to %q", unit.DocumentID)
	}
}

func TestUploadFailureThenRetry(t *testing.T) {
	unit := newUnit()
	if !lifecycle.SourceFailed(unit, "boom") {
		t.Fatal("expected failure to change unit")
	}
	if unit.SourceStatus != metadata.SourceError || unit.Tracked() {
		t.Fatalf("unexpected unit: %+v", unit)
	}
	if lifecycle.SourceFailed(unit, "boom") {
		t.Fatal("repeated identical failure should be a no-op")
	}
	if !lifecycle.UploadSucceeded(unit, lifecycle.Upload{DocumentID: "doc"}) {
		t.Fatal("retry from ERROR should succeed")
	}
	if unit.LastError != "" || unit.SourceStatus != metadata.SourceImporting {
		t.Fatalf("retry should clear error: %+v", unit)
	}
}

func TestImportCompleteIgnoredOutsideImporting(t *testing.T) {
	for _, status := range []metadata.SourceStatus{
		metadata.SourceUntracked,
		metadata.SourceCurrent,
		metadata.SourceEdited,
		metadata.SourceError,
		metadata.SourceCancelled,
	} {
		unit := newUnit()
		unit.DocumentID = "doc"
		unit.SourceStatus = status
		if lifecycle.ImportComplete(unit) {
			t.Errorf("ImportComplete changed %s unit", status)
		}
		if unit.SourceStatus != status {
			t.Errorf("status moved from %s to %s", status, unit.SourceStatus)
		}
	}
}

func TestContentChangedMarksArtifactsStale(t *testing.T) {
	unit := importedUnit(t)
	withTarget(unit, "de", metadata.TargetReady)
	withTarget(unit, "es", metadata.TargetPending)
	withTarget(unit, "fr", metadata.TargetCurrent)
	withTarget(unit, "it", metadata.TargetIntermediate)
	withTarget(unit, "nl", metadata.TargetRequest)

	if !lifecycle.ContentChanged(unit) {
		t.Fatal("expected content change to apply")
	}
	if unit.SourceStatus != metadata.SourceEdited {
		t.Fatalf("expected EDITED source, got %s", unit.SourceStatus)
	}
	want := map[string]metadata.TargetStatus{
		"de": metadata.TargetEdited,
		"es": metadata.TargetPending,
		"fr": metadata.TargetCurrent,
		"it": metadata.TargetEdited,
		"nl": metadata.TargetRequest,
	}
	for locale, status := range want {
		if got := unit.Targets[locale].Status; got != status {
			t.Errorf("%s: expected %s, got %s", locale, status, got)
		}
	}
	if unit.Targets["de"].PriorStatus != metadata.TargetPending {
		t.Fatalf("expected prior status PENDING, got %s", unit.Targets["de"].PriorStatus)
	}
	if lifecycle.ContentChanged(unit) {
		t.Fatal("second content change on EDITED source should be a no-op")
	}
}

func TestContentChangedIgnoredForUntrackedAndError(t *testing.T) {
	unit := newUnit()
	if lifecycle.ContentChanged(unit) {
		t.Fatal("untracked unit should ignore content change")
	}
	unit.SourceStatus = metadata.SourceError
	if lifecycle.ContentChanged(unit) {
		t.Fatal("errored unit should ignore content change")
	}
}

func TestEditUpdateReimportMarksCurrentTargetsEdited(t *testing.T) {
	unit := importedUnit(t)
	withTarget(unit, "es", metadata.TargetCurrent)
	withTarget(unit, "de", metadata.TargetPending)
	withTarget(unit, "fr", metadata.TargetReady)

	lifecycle.ContentChanged(unit)
	if !lifecycle.UpdateSucceeded(unit, "2") {
		t.Fatal("expected update to apply")
	}
	if unit.SourceStatus != metadata.SourceImporting || !unit.Reimport || unit.RevisionID != "2" {
		t.Fatalf("unexpected unit after update: %+v", unit)
	}
	if unit.Targets["es"].Status != metadata.TargetCurrent {
		t.Fatalf("es should stay CURRENT until the re-import completes, got %s", unit.Targets["es"].Status)
	}

	if !lifecycle.ImportComplete(unit) {
		t.Fatal("expected re-import completion")
	}
	if unit.Reimport {
		t.Fatal("reimport flag should be consumed")
	}
	if got := unit.Targets["es"]; got.Status != metadata.TargetEdited || got.PriorStatus != metadata.TargetCurrent {
		t.Fatalf("es: expected EDITED with prior CURRENT, got %+v", got)
	}
	if got := unit.Targets["de"].Status; got != metadata.TargetPending {
		t.Fatalf("de: request intent should persist, got %s", got)
	}
	if got := unit.Targets["fr"]; got.Status != metadata.TargetPending || got.PriorStatus != "" {
		t.Fatalf("fr: expected restored PENDING, got %+v", got)
	}
}

func TestUpdateWithoutEditStillReconciles(t *testing.T) {
	unit := importedUnit(t)
	withTarget(unit, "es", metadata.TargetReady)
	if !lifecycle.UpdateSucceeded(unit, "") {
		t.Fatal("update from CURRENT should apply")
	}
	if unit.RevisionID != "1" {
		t.Fatalf("empty revision should keep pin, got %q", unit.RevisionID)
	}
	if unit.Targets["es"].Status != metadata.TargetEdited {
		t.Fatalf("ready artifact should be stale, got %s", unit.Targets["es"].Status)
	}
}

func TestUpdateRequiresDocument(t *testing.T) {
	unit := newUnit()
	unit.SourceStatus = metadata.SourceError
	if lifecycle.UpdateSucceeded(unit, "1") {
		t.Fatal("update without document should be rejected")
	}
}

func TestCancelAndDisassociate(t *testing.T) {
	unit := importedUnit(t)
	withTarget(unit, "es", metadata.TargetPending)
	withTarget(unit, "de", metadata.TargetCurrent)
	withTarget(unit, "fr", metadata.TargetError)

	if !lifecycle.CancelSucceeded(unit) {
		t.Fatal("expected cancel to apply")
	}
	for locale, target := range unit.Targets {
		if target.Status != metadata.TargetCancelled {
			t.Errorf("%s: expected CANCELLED, got %s", locale, target.Status)
		}
	}
	if lifecycle.CancelSucceeded(unit) {
		t.Fatal("second cancel should be a no-op")
	}

	if !lifecycle.Disassociate(unit) {
		t.Fatal("expected disassociate to apply")
	}
	if unit.Tracked() || unit.SourceStatus != metadata.SourceUntracked || len(unit.Targets) != 0 || unit.ImportedOnce {
		t.Fatalf("unexpected unit after disassociate: %+v", unit)
	}
	if lifecycle.Disassociate(unit) {
		t.Fatal("disassociating an untracked unit should be a no-op")
	}
}
