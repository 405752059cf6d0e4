package language

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"es", "es"},
		{"ES", "es"},
		{"es_ES", "es-ES"},
		{"es-es", "es-ES"},
		{" de-DE ", "de-DE"},
		{"pt_BR", "pt-BR"},
		{"zh-hant", "zh-Hant"},
		{"sr_Latn_RS", "sr-Latn-RS"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "  ", "not a locale", "und", "12"} {
		if _, err := Normalize(input); err == nil {
			t.Errorf("Normalize(%q) expected error", input)
		}
	}
	if _, err := Normalize(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestBase(t *testing.T) {
	if got := Base("pt_BR"); got != "pt" {
		t.Fatalf("Base(pt_BR) = %q", got)
	}
	if got := Base("???"); got != "" {
		t.Fatalf("Base(???) = %q, want empty", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"es", "Spanish"},
		{"de", "German"},
		{"", "Unknown"},
		{"???", "???"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	got, err := NormalizeList([]string{"es_ES", "de", "es-es", "", "fr"})
	if err != nil {
		t.Fatalf("NormalizeList error: %v", err)
	}
	want := []string{"de", "es-ES", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}

	got, err = NormalizeList([]string{"de", "bogus locale"})
	if err == nil {
		t.Fatal("expected error for invalid entry")
	}
	if !reflect.DeepEqual(got, []string{"de"}) {
		t.Fatalf("expected valid entries to survive, got %v", got)
	}

	if got, err := NormalizeList(nil); got != nil || err != nil {
		t.Fatalf("NormalizeList(nil) = %v, %v", got, err)
	}
}

func TestSplitList(t *testing.T) {
	got, err := SplitList("es_ES, de")
	if err != nil {
		t.Fatalf("SplitList error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"de", "es-ES"}) {
		t.Fatalf("SplitList = %v", got)
	}
}
