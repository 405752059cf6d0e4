package profile_test

import (
	"reflect"
	"testing"

	"tmsbridge/internal/config"
	"tmsbridge/internal/profile"
	"tmsbridge/internal/testsupport"
)

func TestResolveDefaults(t *testing.T) {
	if got := profile.Resolve(nil, "es"); got != profile.Manual {
		t.Fatalf("nil profile: got %+v", got)
	}
	p := &profile.Profile{ID: "x", AutoDownload: true}
	if got := profile.Resolve(p, "es"); got != (profile.Policy{AutoDownload: true, Enabled: true}) {
		t.Fatalf("top-level: got %+v", got)
	}
}

func TestResolveOverrides(t *testing.T) {
	p := &profile.Profile{
		ID:           "mixed",
		AutoUpload:   true,
		AutoDownload: true,
		Overrides: map[string]profile.Override{
			"es":    {Marker: profile.MarkerCustom, AutoDownload: testsupport.Bool(false)},
			"fr":    {Marker: "default", AutoDownload: testsupport.Bool(false)},
			"it":    {Marker: profile.MarkerCustom, Enabled: testsupport.Bool(false)},
			"pt-BR": {Marker: profile.MarkerCustom, AutoUpload: testsupport.Bool(false)},
		},
	}

	tests := []struct {
		locale string
		want   profile.Policy
	}{
		{locale: "es", want: profile.Policy{AutoUpload: true, AutoDownload: false, Enabled: true}},
		{locale: "de", want: profile.Policy{AutoUpload: true, AutoDownload: true, Enabled: true}},
		{locale: "fr", want: profile.Policy{AutoUpload: true, AutoDownload: true, Enabled: true}},
		{locale: "it", want: profile.Policy{AutoUpload: true, AutoDownload: true, Enabled: false}},
		{locale: "pt_BR", want: profile.Policy{AutoUpload: false, AutoDownload: true, Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := profile.Resolve(p, tt.locale); got != tt.want {
				t.Fatalf("Resolve(%s) = %+v, want %+v", tt.locale, got, tt.want)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	p := &profile.Profile{
		ID:        "p",
		Overrides: map[string]profile.Override{"es": {Marker: profile.MarkerCustom, AutoUpload: testsupport.Bool(true)}},
	}
	first := profile.Resolve(p, "es")
	for i := 0; i < 10; i++ {
		if got := profile.Resolve(p, "es"); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
	if p.AutoUpload {
		t.Fatal("Resolve mutated the profile")
	}
}

func TestEnabledLocales(t *testing.T) {
	p := &profile.Profile{
		ID:        "p",
		Overrides: map[string]profile.Override{"it": {Marker: profile.MarkerCustom, Enabled: testsupport.Bool(false)}},
	}
	got := profile.EnabledLocales(p, []string{"es", "it", "en", "de", "es"}, "en")
	if want := []string{"de", "es"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("EnabledLocales = %v, want %v", got, want)
	}
	if got := profile.EnabledLocales(nil, nil, "en"); len(got) != 0 {
		t.Fatalf("expected no locales, got %v", got)
	}
}

func TestRegistry(t *testing.T) {
	reg := profile.NewRegistry(map[string]config.Profile{
		"docs": {
			AutoDownload: true,
			LanguageOverrides: map[string]config.LanguageOverride{
				"es": {Overrides: " Custom ", AutoDownload: testsupport.Bool(false)},
			},
		},
	})

	if got := reg.IDs(); !reflect.DeepEqual(got, []string{"automatic", "docs", "manual"}) {
		t.Fatalf("IDs = %v", got)
	}
	automatic := reg.Lookup("automatic")
	if automatic == nil || !automatic.AutoUpload || !automatic.AutoDownload {
		t.Fatalf("unexpected automatic profile: %+v", automatic)
	}
	if manual := reg.Lookup("manual"); profile.Resolve(manual, "es") != profile.Manual {
		t.Fatalf("manual profile should resolve to manual policy")
	}
	if reg.Lookup("missing") != nil {
		t.Fatal("unknown profile should be nil")
	}
	docs := reg.Lookup("docs")
	if profile.Resolve(docs, "es").AutoDownload {
		t.Fatal("docs override for es should disable auto download")
	}
	if !profile.Resolve(docs, "de").AutoDownload {
		t.Fatal("docs should auto download de")
	}
}
