package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Unit describes a translation unit in a transport-friendly format.
type Unit struct {
	ID           int64    `json:"id"`
	Kind         string   `json:"kind"`
	EntityID     string   `json:"entityId"`
	Ref          string   `json:"ref"`
	RevisionID   string   `json:"revisionId,omitempty"`
	DocumentID   string   `json:"documentId,omitempty"`
	ProfileID    string   `json:"profileId,omitempty"`
	JobID        string   `json:"jobId,omitempty"`
	SourceStatus string   `json:"sourceStatus"`
	SourceLocale string   `json:"sourceLocale,omitempty"`
	Tracked      bool     `json:"tracked"`
	ImportedOnce bool     `json:"importedOnce"`
	LastError    string   `json:"lastError,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
	Targets      []Target `json:"targets"`
}

// Target captures one locale's translation state.
type Target struct {
	Locale      string `json:"locale"`
	DisplayName string `json:"displayName,omitempty"`
	Status      string `json:"status"`
	PriorStatus string `json:"priorStatus,omitempty"`
	Progress    int    `json:"progress"`
	LastError   string `json:"lastError,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// UnitListResponse wraps a collection of units.
type UnitListResponse struct {
	Units []Unit `json:"units"`
}

// UnitResponse wraps a single unit.
type UnitResponse struct {
	Unit Unit `json:"unit"`
}

// ActionResponse reports the unit state after a local action.
type ActionResponse struct {
	Action     string `json:"action"`
	DocumentID string `json:"documentId,omitempty"`
	Unit       *Unit  `json:"unit,omitempty"`
}

// UnitFailure names a unit a bulk operation could not process.
type UnitFailure struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

// DisassociateReport summarizes a bulk disassociation.
type DisassociateReport struct {
	Total         int           `json:"total"`
	Disassociated int           `json:"disassociated"`
	Failures      []UnitFailure `json:"failures,omitempty"`
}

// Policy is the resolved automation policy for one locale.
type Policy struct {
	Locale       string `json:"locale"`
	DisplayName  string `json:"displayName,omitempty"`
	AutoUpload   bool   `json:"autoUpload"`
	AutoDownload bool   `json:"autoDownload"`
	Enabled      bool   `json:"enabled"`
}

// ProfileResponse lists a profile's effective policies.
type ProfileResponse struct {
	ProfileID string   `json:"profileId"`
	Policies  []Policy `json:"policies"`
}

// StatsResponse provides unit counts by source and target status.
type StatsResponse struct {
	Sources map[string]int `json:"sources"`
	Targets map[string]int `json:"targets"`
}

// HealthResponse is served by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// ErrorResponse is the body of every non-2xx API answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// SourceRequest is the body of the upload, update and edited actions.
// Content is base64 in JSON.
type SourceRequest struct {
	Title        string `json:"title,omitempty"`
	Content      []byte `json:"content,omitempty"`
	RevisionID   string `json:"revisionId,omitempty"`
	SourceLocale string `json:"sourceLocale,omitempty"`
	JobID        string `json:"jobId,omitempty"`
	ProfileID    string `json:"profileId,omitempty"`
}
