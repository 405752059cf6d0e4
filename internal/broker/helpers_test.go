package broker_test

import (
	"context"
	"sync"
	"testing"

	"tmsbridge/internal/broker"
	"tmsbridge/internal/config"
	"tmsbridge/internal/events"
	"tmsbridge/internal/ingest"
	"tmsbridge/internal/locking"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/metrics"
	"tmsbridge/internal/notifications"
	"tmsbridge/internal/testsupport"
)

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.last = payload
	return nil
}

func (s *stubNotifier) count(event notifications.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type delivery struct {
	payload      []byte
	intermediate bool
}

type memorySink struct {
	mu        sync.Mutex
	delivered map[string][]delivery
}

func (s *memorySink) Deliver(_ context.Context, ref metadata.Ref, locale string, payload []byte, intermediate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delivered == nil {
		s.delivered = map[string][]delivery{}
	}
	key := ref.String() + "/" + locale
	s.delivered[key] = append(s.delivered[key], delivery{payload: append([]byte(nil), payload...), intermediate: intermediate})
	return nil
}

func (s *memorySink) get(ref metadata.Ref, locale string) []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.delivered[ref.String()+"/"+locale]...)
}

type harness struct {
	cfg      *config.Config
	store    *metadata.Store
	tms      *testsupport.FakeTMS
	events   *events.Memory
	notifier *stubNotifier
	sink     *memorySink
	metrics  *metrics.Collectors
	broker   *broker.Broker
}

type harnessOption struct {
	config []testsupport.ConfigOption
	broker []broker.Option
	// dedupe keeps the configured replay window instead of disabling it.
	dedupe bool
}

func newHarness(t *testing.T, opt harnessOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opt.config...)
	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		tms:      testsupport.NewFakeTMS(),
		events:   &events.Memory{},
		notifier: &stubNotifier{},
		sink:     &memorySink{},
		metrics:  metrics.New(),
	}
	opts := []broker.Option{
		broker.WithEvents(h.events),
		broker.WithNotifier(h.notifier),
		broker.WithSink(h.sink),
		broker.WithMetrics(h.metrics),
	}
	if opt.dedupe {
		opts = append(opts, broker.WithDeduper(ingest.NewDeduper(cfg.DedupWindow())))
	} else {
		// Replays must reach the reducers, not the dedupe cache.
		opts = append(opts, broker.WithDeduper(ingest.NewDeduper(0)))
	}
	opts = append(opts, opt.broker...)
	h.broker = broker.New(cfg, h.store, h.tms, opts...)
	return h
}

func manual(t *testing.T) *harness {
	return newHarness(t, harnessOption{})
}

func automatic(t *testing.T) *harness {
	return newHarness(t, harnessOption{config: []testsupport.ConfigOption{testsupport.WithDefaultProfile(config.BuiltinAutomatic)}})
}

var page = metadata.Ref{Kind: "node", ID: "42"}

func source(revision string) broker.SourceData {
	return broker.SourceData{Title: "About us", Content: []byte(`{"title":"About us"}`), RevisionID: revision}
}

func (h *harness) upload(t *testing.T, ref metadata.Ref, revision string) string {
	t.Helper()
	id, err := h.broker.Upload(context.Background(), ref, source(revision))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return id
}

func (h *harness) unit(t *testing.T, ref metadata.Ref) *metadata.Unit {
	t.Helper()
	unit, err := h.store.FindByRef(context.Background(), ref)
	if err != nil {
		t.Fatalf("FindByRef: %v", err)
	}
	if unit == nil {
		t.Fatalf("unit %s not found", ref)
	}
	return unit
}

func (h *harness) notify(t *testing.T, ev ingest.Event) ingest.Decision {
	t.Helper()
	if ev.Locales == nil {
		ev.Locales = []string{}
	}
	if err := ingest.Validate(ev); err != nil {
		t.Fatalf("invalid test event: %v", err)
	}
	decision, err := h.broker.HandleNotification(context.Background(), ev)
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	return decision
}

// imported uploads ref and delivers the import completion.
func (h *harness) imported(t *testing.T, ref metadata.Ref) (string, ingest.Decision) {
	t.Helper()
	id := h.upload(t, ref, "1")
	decision := h.notify(t, documentUploaded(id))
	return id, decision
}

func targetEvent(documentID, locale string, complete bool, progress int) ingest.Event {
	return ingest.Event{DocumentID: documentID, Type: ingest.TypeTarget, Locales: []string{locale}, Complete: complete, Progress: progress}
}

func assertTarget(t *testing.T, unit *metadata.Unit, locale string, want metadata.TargetStatus) {
	t.Helper()
	target, ok := unit.Target(locale)
	if !ok {
		t.Fatalf("%s: no target, want %s", locale, want)
	}
	if target.Status != want {
		t.Fatalf("%s: status %s, want %s", locale, target.Status, want)
	}
}

func documentUploaded(documentID string) ingest.Event {
	return ingest.Event{DocumentID: documentID, Type: ingest.TypeDocumentUploaded, Complete: true, Progress: 100}
}

// failingLocker refuses the blocked key once set and delegates the rest.
type failingLocker struct {
	inner locking.Locker

	mu      sync.Mutex
	blocked string
}

func (l *failingLocker) block(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked = key
}

func (l *failingLocker) Acquire(ctx context.Context, key string) (locking.Release, error) {
	l.mu.Lock()
	blocked := l.blocked
	l.mu.Unlock()
	if key == blocked {
		return nil, locking.ErrBusy
	}
	return l.inner.Acquire(ctx, key)
}
