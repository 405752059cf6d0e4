package api

import (
	"time"

	"tmsbridge/internal/broker"
	"tmsbridge/internal/language"
	"tmsbridge/internal/metadata"
)

// FromUnit converts a stored unit to its API representation.
func FromUnit(unit *metadata.Unit) Unit {
	if unit == nil {
		return Unit{}
	}
	dto := Unit{
		ID:           unit.ID,
		Kind:         unit.Ref.Kind,
		EntityID:     unit.Ref.ID,
		Ref:          unit.Ref.String(),
		RevisionID:   unit.RevisionID,
		DocumentID:   unit.DocumentID,
		ProfileID:    unit.ProfileID,
		JobID:        unit.JobID,
		SourceStatus: string(unit.SourceStatus),
		SourceLocale: unit.SourceLocale,
		Tracked:      unit.Tracked(),
		ImportedOnce: unit.ImportedOnce,
		LastError:    unit.LastError,
		CreatedAt:    formatTime(unit.CreatedAt),
		UpdatedAt:    formatTime(unit.UpdatedAt),
		Targets:      make([]Target, 0, len(unit.Targets)),
	}
	for _, locale := range unit.Locales() {
		target := unit.Targets[locale]
		dto.Targets = append(dto.Targets, Target{
			Locale:      locale,
			DisplayName: language.DisplayName(locale),
			Status:      string(target.Status),
			PriorStatus: string(target.PriorStatus),
			Progress:    target.Progress,
			LastError:   target.LastError,
			UpdatedAt:   formatTime(target.UpdatedAt),
		})
	}
	return dto
}

// FromUnits converts a slice of units into API DTOs.
func FromUnits(units []*metadata.Unit) []Unit {
	out := make([]Unit, 0, len(units))
	for _, unit := range units {
		out = append(out, FromUnit(unit))
	}
	return out
}

// FromReport converts a bulk disassociation report.
func FromReport(report broker.DisassociateReport) DisassociateReport {
	dto := DisassociateReport{Total: report.Total, Disassociated: report.Disassociated}
	for _, failure := range report.Failures {
		dto.Failures = append(dto.Failures, UnitFailure{Ref: failure.Ref.String(), Error: failure.Error})
	}
	return dto
}

// FromPolicies converts resolved locale policies.
func FromPolicies(policies []broker.LocalePolicy) []Policy {
	out := make([]Policy, 0, len(policies))
	for _, p := range policies {
		out = append(out, Policy{
			Locale:       p.Locale,
			DisplayName:  language.DisplayName(p.Locale),
			AutoUpload:   p.AutoUpload,
			AutoDownload: p.AutoDownload,
			Enabled:      p.Enabled,
		})
	}
	return out
}

// FromCounts converts store status counts into string-keyed maps.
func FromCounts(sources map[metadata.SourceStatus]int, targets map[metadata.TargetStatus]int) StatsResponse {
	resp := StatsResponse{
		Sources: make(map[string]int, len(sources)),
		Targets: make(map[string]int, len(targets)),
	}
	for status, count := range sources {
		resp.Sources[string(status)] = count
	}
	for status, count := range targets {
		resp.Targets[string(status)] = count
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
