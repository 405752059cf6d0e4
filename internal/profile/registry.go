package profile

import (
	"sort"
	"strings"

	"tmsbridge/internal/config"
)

// Registry holds the built-in and configured profiles by id.
type Registry struct {
	profiles map[string]*Profile
}

// Builtins returns the profiles that always exist.
func Builtins() []*Profile {
	return []*Profile{
		{ID: config.BuiltinManual},
		{ID: config.BuiltinAutomatic, AutoUpload: true, AutoDownload: true},
	}
}

// NewRegistry builds a registry from the [profiles] config section.
func NewRegistry(profiles map[string]config.Profile) *Registry {
	reg := &Registry{profiles: make(map[string]*Profile, len(profiles)+2)}
	for _, builtin := range Builtins() {
		reg.profiles[builtin.ID] = builtin
	}
	for id, cfg := range profiles {
		reg.Add(FromConfig(id, cfg))
	}
	return reg
}

// FromConfig converts one configured profile.
func FromConfig(id string, cfg config.Profile) *Profile {
	p := &Profile{
		ID:           strings.TrimSpace(id),
		AutoUpload:   cfg.AutoUpload,
		AutoDownload: cfg.AutoDownload,
	}
	if len(cfg.LanguageOverrides) > 0 {
		p.Overrides = make(map[string]Override, len(cfg.LanguageOverrides))
		for locale, o := range cfg.LanguageOverrides {
			p.Overrides[locale] = Override{
				Marker:       strings.ToLower(strings.TrimSpace(o.Overrides)),
				AutoUpload:   o.AutoUpload,
				AutoDownload: o.AutoDownload,
				Enabled:      o.Enabled,
			}
		}
	}
	return p
}

// Add registers or replaces p.
func (r *Registry) Add(p *Profile) {
	if r == nil || p == nil || p.ID == "" {
		return
	}
	r.profiles[p.ID] = p
}

// Lookup returns the profile for id, or nil when it is unknown. Callers treat
// nil as manual.
func (r *Registry) Lookup(id string) *Profile {
	if r == nil {
		return nil
	}
	return r.profiles[strings.TrimSpace(id)]
}

// IDs lists the registered profile ids, sorted.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
