package ingest_test

import (
	"reflect"
	"testing"

	"tmsbridge/internal/ingest"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/profile"
)

func importingUnit() *metadata.Unit {
	unit := metadata.NewUnit(metadata.Ref{Kind: "node", ID: "1"}, "")
	unit.DocumentID = "doc-1"
	unit.SourceLocale = "en"
	unit.SourceStatus = metadata.SourceImporting
	return unit
}

func currentUnit() *metadata.Unit {
	unit := importingUnit()
	unit.SourceStatus = metadata.SourceCurrent
	unit.ImportedOnce = true
	return unit
}

func scopeFor(p *profile.Profile) ingest.Scope {
	return ingest.NewScope(p, []string{"de", "es", "fr"}, "en")
}

func TestReduceDocumentUploadedManual(t *testing.T) {
	unit := importingUnit()
	out := ingest.ReduceDocumentUploaded(unit, ingest.Event{Type: ingest.TypeDocumentUploaded, Complete: true, Progress: 100}, scopeFor(nil))
	if !out.Changed || len(out.AutoRequest) != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if unit.SourceStatus != metadata.SourceCurrent {
		t.Fatalf("expected CURRENT, got %s", unit.SourceStatus)
	}
	if !reflect.DeepEqual(unit.Locales(), []string{"de", "es", "fr"}) {
		t.Fatalf("expected REQUEST targets for every enabled locale, got %v", unit.Locales())
	}
	for _, locale := range unit.Locales() {
		if target, _ := unit.Target(locale); target.Status != metadata.TargetRequest {
			t.Fatalf("%s: expected REQUEST, got %s", locale, target.Status)
		}
	}
}

func TestReduceDocumentUploadedAutomatic(t *testing.T) {
	no := false
	p := &profile.Profile{
		ID:         "auto",
		AutoUpload: true,
		Overrides:  map[string]profile.Override{"fr": {Marker: profile.MarkerCustom, AutoUpload: &no}},
	}
	unit := importingUnit()
	out := ingest.ReduceDocumentUploaded(unit, ingest.Event{Type: ingest.TypeDocumentUploaded, Complete: true}, scopeFor(p))
	if !reflect.DeepEqual(out.AutoRequest, []string{"de", "es"}) {
		t.Fatalf("expected [de es], got %v", out.AutoRequest)
	}
	if target, ok := unit.Target("fr"); !ok || target.Status != metadata.TargetRequest {
		t.Fatalf("fr should be REQUEST, got %+v", target)
	}
	if _, ok := unit.Target("de"); ok {
		t.Fatal("auto-requested locales are left for the broker")
	}
}

func TestReduceDocumentUploadedIncompleteIsNoop(t *testing.T) {
	unit := importingUnit()
	out := ingest.ReduceDocumentUploaded(unit, ingest.Event{Type: ingest.TypeDocumentUploaded, Progress: 50}, scopeFor(nil))
	if out.Changed || unit.SourceStatus != metadata.SourceImporting {
		t.Fatalf("expected no change, got %+v / %s", out, unit.SourceStatus)
	}
}

func TestReduceDocumentUploadedSkipsExistingTargets(t *testing.T) {
	p := &profile.Profile{ID: "auto", AutoUpload: true}
	unit := currentUnit()
	unit.Targets["de"] = &metadata.Target{Locale: "de", Status: metadata.TargetPending}
	unit.Targets["es"] = &metadata.Target{Locale: "es", Status: metadata.TargetRequest}
	out := ingest.ReduceDocumentUploaded(unit, ingest.Event{Type: ingest.TypeDocumentUploaded, Complete: true}, scopeFor(p))
	if !reflect.DeepEqual(out.AutoRequest, []string{"es", "fr"}) {
		t.Fatalf("expected [es fr], got %v", out.AutoRequest)
	}
}

func TestReduceTarget(t *testing.T) {
	auto := &profile.Profile{ID: "auto", AutoDownload: true}
	tests := []struct {
		name     string
		profile  *profile.Profile
		locale   string
		complete bool
		want     ingest.TargetOutcome
		status   metadata.TargetStatus
	}{
		{"progress", nil, "de", false, ingest.TargetOutcome{Changed: true}, metadata.TargetPending},
		{"complete manual", nil, "de", true, ingest.TargetOutcome{Changed: true, Ready: true}, metadata.TargetReady},
		{"complete automatic", auto, "de", true, ingest.TargetOutcome{Changed: true, Ready: true, Download: true}, metadata.TargetReady},
		{"disabled locale", nil, "ja", true, ingest.TargetOutcome{Ignored: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := currentUnit()
			got := ingest.ReduceTarget(unit, tt.locale, tt.complete, 40, scopeFor(tt.profile))
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			target, ok := unit.Target(tt.locale)
			if tt.status == "" {
				if ok {
					t.Fatalf("expected no target, got %+v", target)
				}
				return
			}
			if !ok || target.Status != tt.status {
				t.Fatalf("expected %s, got %+v", tt.status, target)
			}
		})
	}
}

func TestReduceTargetReplayIsIdempotent(t *testing.T) {
	unit := currentUnit()
	scope := scopeFor(nil)
	ingest.ReduceTarget(unit, "de", true, 100, scope)
	again := ingest.ReduceTarget(unit, "de", true, 100, scope)
	if again.Changed {
		t.Fatal("replay should not change the unit")
	}
	if !again.Ready {
		t.Fatal("replay still reports READY")
	}
}

func TestReducePhase(t *testing.T) {
	auto := &profile.Profile{ID: "auto", AutoDownload: true}
	unit := currentUnit()
	unit.Targets["de"] = &metadata.Target{Locale: "de", Status: metadata.TargetPending}

	first := ingest.ReducePhase(unit, "de", 60, false, scopeFor(auto))
	if !first.Changed || !first.FetchIntermediate {
		t.Fatalf("expected intermediate fetch, got %+v", first)
	}
	if target, _ := unit.Target("de"); target.Status != metadata.TargetIntermediate {
		t.Fatalf("expected INTERMEDIATE, got %s", target.Status)
	}

	unit.Targets["de"].IntermediateFetched = true
	replay := ingest.ReducePhase(unit, "de", 60, false, scopeFor(auto))
	if replay.Changed || replay.FetchIntermediate {
		t.Fatalf("replay should not refetch, got %+v", replay)
	}

	done := ingest.ReducePhase(unit, "de", 100, true, scopeFor(auto))
	if !done.Ready || !done.Download {
		t.Fatalf("expected READY with download, got %+v", done)
	}
}

func TestReducePhaseManualDoesNotFetch(t *testing.T) {
	unit := currentUnit()
	out := ingest.ReducePhase(unit, "es", 30, false, scopeFor(nil))
	if !out.Changed || out.FetchIntermediate {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
