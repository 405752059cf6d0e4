package broker

import (
	"context"
	"fmt"

	"tmsbridge/internal/metadata"
	"tmsbridge/internal/profile"
	"tmsbridge/internal/services"
)

// Status returns the unit for ref, creating it in UNTRACKED form when the
// host asks about a resource for the first time.
func (b *Broker) Status(ctx context.Context, ref metadata.Ref) (*metadata.Unit, error) {
	if err := ref.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "status", ref.String(), err)
	}
	unit, _, err := b.store.Ensure(ctx, ref, b.cfg.ProfileFor(""))
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", ref, err)
	}
	return unit, nil
}

// List returns stored units matching filter.
func (b *Broker) List(ctx context.Context, filter metadata.Filter) ([]*metadata.Unit, error) {
	return b.store.List(ctx, filter)
}

// LocalePolicy is the effective automation for one enabled locale.
type LocalePolicy struct {
	Locale string
	profile.Policy
}

// Policies resolves profileID against every enabled locale. An unknown id
// resolves as manual.
func (b *Broker) Policies(profileID string) []LocalePolicy {
	p := b.profiles.Lookup(profileID)
	locales := profile.EnabledLocales(p, b.cfg.Content.TargetLocales, b.cfg.Content.SourceLocale)
	out := make([]LocalePolicy, 0, len(locales))
	for _, locale := range locales {
		out = append(out, LocalePolicy{Locale: locale, Policy: profile.Resolve(p, locale)})
	}
	return out
}
