package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SourceStatus represents the lifecycle of a unit's source document in the TMS.
type SourceStatus string

const (
	SourceUntracked SourceStatus = "UNTRACKED"
	SourceEdited    SourceStatus = "EDITED"
	SourceImporting SourceStatus = "IMPORTING"
	SourceCurrent   SourceStatus = "CURRENT"
	SourceCancelled SourceStatus = "CANCELLED"
	SourceError     SourceStatus = "ERROR"
)

var allSourceStatuses = []SourceStatus{
	SourceUntracked,
	SourceEdited,
	SourceImporting,
	SourceCurrent,
	SourceCancelled,
	SourceError,
}

var sourceStatusSet = func() map[SourceStatus]struct{} {
	set := make(map[SourceStatus]struct{}, len(allSourceStatuses))
	for _, status := range allSourceStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// SourceStatuses returns every source status in display order.
func SourceStatuses() []SourceStatus {
	return append([]SourceStatus(nil), allSourceStatuses...)
}

// ParseSourceStatus accepts any casing.
func ParseSourceStatus(value string) (SourceStatus, bool) {
	status := SourceStatus(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := sourceStatusSet[status]
	return status, ok
}

// TargetStatus represents the lifecycle of one locale's translation.
type TargetStatus string

const (
	TargetRequest      TargetStatus = "REQUEST"
	TargetPending      TargetStatus = "PENDING"
	TargetReady        TargetStatus = "READY"
	TargetIntermediate TargetStatus = "INTERMEDIATE"
	TargetCurrent      TargetStatus = "CURRENT"
	TargetEdited       TargetStatus = "EDITED"
	TargetCancelled    TargetStatus = "CANCELLED"
	TargetError        TargetStatus = "ERROR"
	TargetUntracked    TargetStatus = "UNTRACKED"
)

var allTargetStatuses = []TargetStatus{
	TargetRequest,
	TargetPending,
	TargetIntermediate,
	TargetReady,
	TargetCurrent,
	TargetEdited,
	TargetCancelled,
	TargetError,
	TargetUntracked,
}

var targetStatusSet = func() map[TargetStatus]struct{} {
	set := make(map[TargetStatus]struct{}, len(allTargetStatuses))
	for _, status := range allTargetStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// TargetStatuses returns every target status in display order.
func TargetStatuses() []TargetStatus {
	return append([]TargetStatus(nil), allTargetStatuses...)
}

// ParseTargetStatus accepts any casing.
func ParseTargetStatus(value string) (TargetStatus, bool) {
	status := TargetStatus(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := targetStatusSet[status]
	return status, ok
}

// ErrInvalidRef reports a reference without kind or id.
var ErrInvalidRef = errors.New("entity kind and id are required")

// Ref identifies a host-side resource.
type Ref struct {
	Kind string
	ID   string
}

// ParseRef splits "kind:id".
func ParseRef(value string) (Ref, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(value), ":")
	ref := Ref{Kind: strings.TrimSpace(kind), ID: strings.TrimSpace(id)}
	if !ok {
		return Ref{}, fmt.Errorf("reference %q: want kind:id", value)
	}
	return ref, ref.Validate()
}

// Validate reports ErrInvalidRef when either part is blank.
func (r Ref) Validate() error {
	if strings.TrimSpace(r.Kind) == "" || strings.TrimSpace(r.ID) == "" {
		return ErrInvalidRef
	}
	return nil
}

func (r Ref) String() string {
	return r.Kind + ":" + r.ID
}

// Unit is the local record of one translatable host resource.
type Unit struct {
	ID           int64
	Ref          Ref
	RevisionID   string
	DocumentID   string
	ProfileID    string
	JobID        string
	SourceStatus SourceStatus
	SourceLocale string
	// ImportedOnce is set the first time the source reaches CURRENT.
	ImportedOnce bool
	// Reimport is set by a successful update and consumed when that import completes.
	Reimport  bool
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
	Targets   map[string]*Target
}

// Target is one locale's translation state for a unit.
type Target struct {
	Locale string
	Status TargetStatus
	// PriorStatus is the status held before the target became EDITED.
	PriorStatus TargetStatus
	Progress    int
	// IntermediateFetched records that the provisional artifact for the
	// current INTERMEDIATE state was already downloaded.
	IntermediateFetched bool
	LastError           string
	UpdatedAt           time.Time
}

// NewUnit returns an untracked unit for ref.
func NewUnit(ref Ref, profileID string) *Unit {
	return &Unit{
		Ref:          ref,
		ProfileID:    profileID,
		SourceStatus: SourceUntracked,
		Targets:      map[string]*Target{},
	}
}

// Tracked reports whether the TMS knows the document.
func (u *Unit) Tracked() bool {
	return u != nil && u.DocumentID != ""
}

// Target returns the target for locale, if any.
func (u *Unit) Target(locale string) (*Target, bool) {
	if u == nil || u.Targets == nil {
		return nil, false
	}
	t, ok := u.Targets[locale]
	return t, ok
}

// Locales returns the unit's target locales sorted.
func (u *Unit) Locales() []string {
	locales := make([]string, 0, len(u.Targets))
	for locale := range u.Targets {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

// Clone returns a deep copy so transitions can be computed without aliasing
// the stored value.
func (u *Unit) Clone() *Unit {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Targets = make(map[string]*Target, len(u.Targets))
	for locale, target := range u.Targets {
		t := *target
		clone.Targets[locale] = &t
	}
	return &clone
}

// Equal reports whether u and other hold the same persisted state. Timestamps
// are compared too, so a transition that cleared one counts as a change.
func (u *Unit) Equal(other *Unit) bool {
	if u == nil || other == nil {
		return u == other
	}
	if u.ID != other.ID || u.Ref != other.Ref || u.RevisionID != other.RevisionID ||
		u.DocumentID != other.DocumentID || u.ProfileID != other.ProfileID ||
		u.JobID != other.JobID || u.SourceStatus != other.SourceStatus ||
		u.SourceLocale != other.SourceLocale || u.ImportedOnce != other.ImportedOnce ||
		u.Reimport != other.Reimport || u.LastError != other.LastError ||
		!u.UpdatedAt.Equal(other.UpdatedAt) {
		return false
	}
	if len(u.Targets) != len(other.Targets) {
		return false
	}
	for locale, target := range u.Targets {
		theirs, ok := other.Targets[locale]
		if !ok {
			return false
		}
		a, b := *target, *theirs
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return false
		}
		a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
		if a != b {
			return false
		}
	}
	return true
}
