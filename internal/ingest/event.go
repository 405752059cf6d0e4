package ingest

import (
	"strconv"
	"strings"
)

// Type is the closed set of notification kinds.
type Type string

const (
	TypeDocumentUploaded Type = "document_uploaded"
	TypeTarget           Type = "target"
	TypePhase            Type = "phase"
)

// Event is a validated, normalized notification. Locales holds one entry for
// target events and one or more for phase events.
type Event struct {
	ProjectID  string   `json:"project_id,omitempty"`
	DocumentID string   `json:"document_id"`
	Type       Type     `json:"type"`
	Locales    []string `json:"locales"`
	Complete   bool     `json:"complete"`
	Progress   int      `json:"progress"`
}

// Locale returns the first locale, or "".
func (e Event) Locale() string {
	if len(e.Locales) == 0 {
		return ""
	}
	return e.Locales[0]
}

// Fingerprint identifies exact replays of the same notification.
func (e Event) Fingerprint() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteByte('|')
	b.WriteString(e.ProjectID)
	b.WriteByte('|')
	b.WriteString(e.DocumentID)
	b.WriteByte('|')
	b.WriteString(strings.Join(e.Locales, ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(e.Complete))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(e.Progress))
	return b.String()
}
