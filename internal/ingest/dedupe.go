package ingest

import (
	"sync"
	"time"
)

type dedupeEntry struct {
	documentID string
	decision   Decision
	at         time.Time
}

// Deduper remembers the decision of recently processed events. A zero or
// negative window disables it.
type Deduper struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]dedupeEntry
}

// NewDeduper returns a Deduper with the given window.
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{window: window, now: time.Now, entries: map[string]dedupeEntry{}}
}

// SetClock overrides the time source.
func (d *Deduper) SetClock(now func() time.Time) {
	if d == nil || now == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// Lookup returns the cached decision for key when it is still inside the window.
func (d *Deduper) Lookup(key string) (Decision, bool) {
	if d == nil || d.window <= 0 {
		return Decision{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.entries[key]
	if !ok {
		return Decision{}, false
	}
	if d.now().Sub(entry.at) >= d.window {
		delete(d.entries, key)
		return Decision{}, false
	}
	return entry.decision, true
}

// Remember stores decision for key, owned by documentID, and evicts expired
// entries.
func (d *Deduper) Remember(key, documentID string, decision Decision) {
	if d == nil || d.window <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for k, entry := range d.entries {
		if now.Sub(entry.at) >= d.window {
			delete(d.entries, k)
		}
	}
	d.entries[key] = dedupeEntry{documentID: documentID, decision: decision, at: now}
}

// ForgetDocument drops every cached decision for documentID. Callers use it
// whenever the unit holding the document changes outside notification
// handling, since a replayed notification is no longer a no-op then.
func (d *Deduper) ForgetDocument(documentID string) {
	if d == nil || documentID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, entry := range d.entries {
		if entry.documentID == documentID {
			delete(d.entries, k)
		}
	}
}

// Len reports how many entries are cached.
func (d *Deduper) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
