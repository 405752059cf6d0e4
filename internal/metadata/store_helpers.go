package metadata

import (
	"database/sql"
	"strings"
	"time"
)

const unitColumns = "id, entity_kind, entity_id, revision_id, document_id, profile_id, job_id, source_status, source_locale, imported_once, reimport, last_error, created_at, updated_at"

func scanUnit(scanner interface{ Scan(dest ...any) error }) (*Unit, error) {
	var (
		id           int64
		kind         string
		entityID     string
		revisionID   sql.NullString
		documentID   sql.NullString
		profileID    sql.NullString
		jobID        sql.NullString
		statusStr    string
		sourceLocale sql.NullString
		importedOnce int
		reimport     int
		lastError    sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id,
		&kind,
		&entityID,
		&revisionID,
		&documentID,
		&profileID,
		&jobID,
		&statusStr,
		&sourceLocale,
		&importedOnce,
		&reimport,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	status, ok := ParseSourceStatus(statusStr)
	if !ok {
		status = SourceError
	}
	return &Unit{
		ID:           id,
		Ref:          Ref{Kind: kind, ID: entityID},
		RevisionID:   revisionID.String,
		DocumentID:   documentID.String,
		ProfileID:    profileID.String,
		JobID:        jobID.String,
		SourceStatus: status,
		SourceLocale: sourceLocale.String,
		ImportedOnce: importedOnce != 0,
		Reimport:     reimport != 0,
		LastError:    lastError.String,
		CreatedAt:    parseTimeString(createdRaw),
		UpdatedAt:    parseTimeString(updatedRaw),
		Targets:      map[string]*Target{},
	}, nil
}

// targetRow mirrors the targets table for sqlx scanning.
type targetRow struct {
	UnitID              int64          `db:"unit_id"`
	Locale              string         `db:"locale"`
	Status              string         `db:"status"`
	PriorStatus         sql.NullString `db:"prior_status"`
	Progress            int            `db:"progress"`
	IntermediateFetched int            `db:"intermediate_fetched"`
	LastError           sql.NullString `db:"last_error"`
	UpdatedAt           string         `db:"updated_at"`
}

func (r targetRow) target() *Target {
	status, ok := ParseTargetStatus(r.Status)
	if !ok {
		status = TargetError
	}
	prior, _ := ParseTargetStatus(r.PriorStatus.String)
	return &Target{
		Locale:              r.Locale,
		Status:              status,
		PriorStatus:         prior,
		Progress:            r.Progress,
		IntermediateFetched: r.IntermediateFetched != 0,
		LastError:           r.LastError.String,
		UpdatedAt:           parseTimeString(r.UpdatedAt),
	}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}
