package metadata

import "testing"

func TestParseStatuses(t *testing.T) {
	if status, ok := ParseSourceStatus(" current "); !ok || status != SourceCurrent {
		t.Fatalf("ParseSourceStatus = %q, %v", status, ok)
	}
	if _, ok := ParseSourceStatus("DONE"); ok {
		t.Fatal("expected unknown source status to fail")
	}
	if status, ok := ParseTargetStatus("intermediate"); !ok || status != TargetIntermediate {
		t.Fatalf("ParseTargetStatus = %q, %v", status, ok)
	}
	if _, ok := ParseTargetStatus(""); ok {
		t.Fatal("expected empty target status to fail")
	}
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("node:42")
	if err != nil || ref.Kind != "node" || ref.ID != "42" {
		t.Fatalf("ParseRef = %+v, %v", ref, err)
	}
	if ref.String() != "node:42" {
		t.Fatalf("String = %q", ref.String())
	}
	for _, bad := range []string{"node", ":42", "node:", ""} {
		if _, err := ParseRef(bad); err == nil {
			t.Errorf("ParseRef(%q) expected error", bad)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	unit := NewUnit(Ref{Kind: "node", ID: "1"}, "")
	unit.Targets["es"] = &Target{Locale: "es", Status: TargetPending}

	clone := unit.Clone()
	clone.Targets["es"].Status = TargetReady
	clone.Targets["de"] = &Target{Locale: "de", Status: TargetRequest}

	if unit.Targets["es"].Status != TargetPending {
		t.Fatal("clone mutated original target")
	}
	if _, ok := unit.Targets["de"]; ok {
		t.Fatal("clone mutated original map")
	}
	if (*Unit)(nil).Clone() != nil {
		t.Fatal("nil clone should be nil")
	}
}

func TestEqualTracksTargetChanges(t *testing.T) {
	unit := NewUnit(Ref{Kind: "node", ID: "1"}, "")
	unit.Targets["de"] = &Target{Locale: "de", Status: TargetPending, Progress: 10}
	clone := unit.Clone()
	if !unit.Equal(clone) {
		t.Fatal("clone should be equal")
	}
	clone.Targets["de"].Progress = 20
	if unit.Equal(clone) {
		t.Fatal("progress change should be detected")
	}
	clone = unit.Clone()
	delete(clone.Targets, "de")
	clone.Targets["es"] = &Target{Locale: "es", Status: TargetPending, Progress: 10}
	if unit.Equal(clone) {
		t.Fatal("locale swap should be detected")
	}
}
