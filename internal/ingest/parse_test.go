package ingest_test

import (
	"errors"
	"net/url"
	"reflect"
	"testing"

	"tmsbridge/internal/ingest"
	"tmsbridge/internal/services"
)

func TestParseValues(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   ingest.Event
	}{
		{
			name:   "document uploaded",
			values: url.Values{"document_id": {"doc-1"}, "type": {"document_uploaded"}, "complete": {"true"}, "progress": {"100"}, "project_id": {"p1"}},
			want:   ingest.Event{ProjectID: "p1", DocumentID: "doc-1", Type: ingest.TypeDocumentUploaded, Locales: []string{}, Complete: true, Progress: 100},
		},
		{
			name:   "locale_code wins over locale",
			values: url.Values{"document_id": {"doc-1"}, "type": {"target"}, "locale_code": {"fr"}, "locale": {"de"}, "progress": {"40"}},
			want:   ingest.Event{DocumentID: "doc-1", Type: ingest.TypeTarget, Locales: []string{"fr"}, Progress: 40},
		},
		{
			name:   "underscore locale",
			values: url.Values{"document_id": {"doc-1"}, "type": {"target"}, "locale": {"es_ES"}, "complete": {"true"}},
			want:   ingest.Event{DocumentID: "doc-1", Type: ingest.TypeTarget, Locales: []string{"es-ES"}, Complete: true},
		},
		{
			name:   "phase locale list",
			values: url.Values{"document_id": {"doc-1"}, "type": {"Phase"}, "locale": {"de, es"}, "progress": {"60"}},
			want:   ingest.Event{DocumentID: "doc-1", Type: ingest.TypePhase, Locales: []string{"de", "es"}, Progress: 60},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ingest.ParseValues(tt.values)
			if err != nil {
				t.Fatalf("ParseValues: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseJSONAcceptsNativeAndStringTypes(t *testing.T) {
	native, err := ingest.ParseJSON([]byte(`{"document_id":"doc-2","type":"target","locale_code":"de","complete":false,"progress":55}`))
	if err != nil {
		t.Fatalf("native: %v", err)
	}
	stringly, err := ingest.ParseJSON([]byte(`{"document_id":"doc-2","type":"target","locale_code":"de","complete":"false","progress":"55"}`))
	if err != nil {
		t.Fatalf("strings: %v", err)
	}
	if !reflect.DeepEqual(native, stringly) {
		t.Fatalf("encodings disagree: %+v vs %+v", native, stringly)
	}
	if native.Locale() != "de" || native.Progress != 55 {
		t.Fatalf("unexpected event %+v", native)
	}
}

func TestParseRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		marker error
	}{
		{"missing document id", url.Values{"type": {"target"}, "locale": {"de"}}, services.ErrValidation},
		{"unknown type", url.Values{"document_id": {"d"}, "type": {"job_done"}}, services.ErrValidation},
		{"progress out of range", url.Values{"document_id": {"d"}, "type": {"target"}, "locale": {"de"}, "progress": {"101"}}, services.ErrValidation},
		{"negative progress", url.Values{"document_id": {"d"}, "type": {"target"}, "locale": {"de"}, "progress": {"-1"}}, services.ErrValidation},
		{"progress not a number", url.Values{"document_id": {"d"}, "type": {"target"}, "locale": {"de"}, "progress": {"half"}}, services.ErrValidation},
		{"complete not a bool", url.Values{"document_id": {"d"}, "type": {"document_uploaded"}, "complete": {"maybe"}}, services.ErrValidation},
		{"target without locale", url.Values{"document_id": {"d"}, "type": {"target"}}, services.ErrValidation},
		{"target with two locales", url.Values{"document_id": {"d"}, "type": {"target"}, "locale": {"de,es"}}, services.ErrValidation},
		{"phase without locale", url.Values{"document_id": {"d"}, "type": {"phase"}}, services.ErrValidation},
		{"unparseable locale", url.Values{"document_id": {"d"}, "type": {"target"}, "locale": {"not a locale!"}}, services.ErrInvalidLocale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.ParseValues(tt.values)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestParseJSONRejectsMalformedBodies(t *testing.T) {
	for _, body := range []string{"", "not json", `{"document_id":"d","type":"target"} {}`, `[]`} {
		if _, err := ingest.ParseJSON([]byte(body)); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("body %q: expected validation error, got %v", body, err)
		}
	}
}

func TestFingerprintDistinguishesProgress(t *testing.T) {
	a := ingest.Event{DocumentID: "d", Type: ingest.TypeTarget, Locales: []string{"de"}, Progress: 10}
	b := a
	b.Progress = 20
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("expected different fingerprints")
	}
	c := a
	c.Locales = []string{"de"}
	if a.Fingerprint() != c.Fingerprint() {
		t.Fatal("expected equal fingerprints for identical events")
	}
}
