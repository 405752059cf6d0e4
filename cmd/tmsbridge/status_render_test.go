package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"tmsbridge/internal/api"
)

func TestPaintStatus(t *testing.T) {
	if got := paintStatus("CURRENT", false); got != "CURRENT" {
		t.Fatalf("expected plain status, got %q", got)
	}
	got := paintStatus("ERROR", true)
	if !strings.HasPrefix(got, ansiRed) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected red status, got %q", got)
	}
	if got := paintStatus("UNTRACKED", true); got != "UNTRACKED" {
		t.Fatalf("expected uncoloured untracked, got %q", got)
	}
}

func TestRenderUnitDetail(t *testing.T) {
	unit := api.Unit{
		Ref:          "node:7",
		SourceStatus: "CURRENT",
		DocumentID:   "doc-7",
		Targets: []api.Target{
			{Locale: "de", DisplayName: "German", Status: "PENDING", Progress: 40},
			{Locale: "es", DisplayName: "Spanish", Status: "ERROR", LastError: "boom"},
		},
	}
	var buf bytes.Buffer
	if err := renderUnitDetail(&buf, unit, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"node:7", "doc-7", "Revision:", "German", "40%", "boom"} {
		requireContains(t, out, want)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no colour codes, got %q", out)
	}
}

func TestRenderUnitListEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := renderUnitList(&buf, nil, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No units" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignRight})
	requireContains(t, out, "only")
	if renderTable(nil, [][]string{{"x"}}, nil) != "" {
		t.Fatal("expected empty render without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
