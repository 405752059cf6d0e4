package api

import (
	"fmt"
	"strings"

	"tmsbridge/internal/metadata"
)

// TargetSummary renders targets compactly, e.g. "de:CURRENT es:PENDING(40%)".
func TargetSummary(unit Unit) string {
	if len(unit.Targets) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(unit.Targets))
	for _, target := range unit.Targets {
		part := target.Locale + ":" + target.Status
		if target.Progress > 0 && target.Progress < 100 {
			part += fmt.Sprintf("(%d%%)", target.Progress)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

// ParseSourceFilter converts repeated or comma-separated status values. An
// unknown status is an error so typos do not silently list everything.
func ParseSourceFilter(values []string) ([]metadata.SourceStatus, error) {
	var statuses []metadata.SourceStatus
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := metadata.ParseSourceStatus(part)
			if !ok {
				return nil, fmt.Errorf("unknown source status %q", part)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}
