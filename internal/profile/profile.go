package profile

import (
	"sort"
	"strings"

	"tmsbridge/internal/language"
)

// MarkerCustom enables a language override. Any other marker leaves the
// locale on the profile's top-level values.
const MarkerCustom = "custom"

// Override adjusts a single locale. Nil fields inherit the profile.
type Override struct {
	Marker       string
	AutoUpload   *bool
	AutoDownload *bool
	Enabled      *bool
}

// Profile is a named automation policy.
type Profile struct {
	ID           string
	AutoUpload   bool
	AutoDownload bool
	Overrides    map[string]Override
}

// Policy is the effective behaviour for one locale.
type Policy struct {
	AutoUpload   bool `json:"auto_upload"`
	AutoDownload bool `json:"auto_download"`
	Enabled      bool `json:"enabled"`
}

// Manual is the policy applied when no profile is associated.
var Manual = Policy{Enabled: true}

// Resolve returns the effective policy of p for locale. A nil profile is manual.
func Resolve(p *Profile, locale string) Policy {
	if p == nil {
		return Manual
	}
	policy := Policy{
		AutoUpload:   p.AutoUpload,
		AutoDownload: p.AutoDownload,
		Enabled:      true,
	}
	override, ok := p.override(locale)
	if !ok || override.Marker != MarkerCustom {
		return policy
	}
	if override.AutoUpload != nil {
		policy.AutoUpload = *override.AutoUpload
	}
	if override.AutoDownload != nil {
		policy.AutoDownload = *override.AutoDownload
	}
	if override.Enabled != nil {
		policy.Enabled = *override.Enabled
	}
	return policy
}

func (p *Profile) override(locale string) (Override, bool) {
	if len(p.Overrides) == 0 {
		return Override{}, false
	}
	key := strings.TrimSpace(locale)
	if normalized, err := language.Normalize(locale); err == nil {
		key = normalized
	}
	override, ok := p.Overrides[key]
	return override, ok
}

// EnabledLocales returns the configured target locales still enabled by p,
// sorted, without the source locale.
func EnabledLocales(p *Profile, configured []string, source string) []string {
	out := make([]string, 0, len(configured))
	seen := make(map[string]struct{}, len(configured))
	for _, locale := range configured {
		if locale == "" || locale == source {
			continue
		}
		if _, dup := seen[locale]; dup {
			continue
		}
		seen[locale] = struct{}{}
		if Resolve(p, locale).Enabled {
			out = append(out, locale)
		}
	}
	sort.Strings(out)
	return out
}
