package broker_test

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tmsbridge/internal/broker"
	"tmsbridge/internal/ingest"
	"tmsbridge/internal/locking"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/tms"
)

func deduped(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, harnessOption{dedupe: true})
	if h.cfg.DedupWindow() <= 0 {
		t.Fatalf("expected a default dedupe window, got %v", h.cfg.DedupWindow())
	}
	return h
}

func TestReplayInsideWindowIsAnsweredFromCache(t *testing.T) {
	h := deduped(t)
	id, _ := h.imported(t, page)
	if err := h.broker.RequestTarget(context.Background(), page, "de"); err != nil {
		t.Fatalf("RequestTarget: %v", err)
	}

	first := h.notify(t, targetEvent(id, "de", true, 100))
	second := h.notify(t, targetEvent(id, "de", true, 100))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay decision %+v, want %+v", second, first)
	}
	if got := testutil.ToFloat64(h.metrics.NotificationsTotal.WithLabelValues("target", "duplicate")); got != 1 {
		t.Fatalf("duplicate count = %v", got)
	}
	assertTarget(t, h.unit(t, page), "de", metadata.TargetReady)
}

func TestReimportCompletionAfterUpdateIsApplied(t *testing.T) {
	h := deduped(t)
	ctx := context.Background()
	id, _ := h.imported(t, page)

	if err := h.broker.ContentChanged(ctx, page, nil); err != nil {
		t.Fatalf("ContentChanged: %v", err)
	}
	if err := h.broker.Update(ctx, page, source("2")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := h.unit(t, page).SourceStatus; got != metadata.SourceImporting {
		t.Fatalf("source after update = %s", got)
	}

	h.notify(t, documentUploaded(id))
	if got := h.unit(t, page).SourceStatus; got != metadata.SourceCurrent {
		t.Fatalf("re-import completion not applied: source %s, want CURRENT", got)
	}
}

func TestNewTranslationCompletionAfterRerequestIsApplied(t *testing.T) {
	h := deduped(t)
	ctx := context.Background()
	id, _ := h.imported(t, page)

	if err := h.broker.RequestTarget(ctx, page, "es"); err != nil {
		t.Fatalf("RequestTarget: %v", err)
	}
	h.notify(t, targetEvent(id, "es", true, 100))
	if _, err := h.broker.Download(ctx, page, "es"); err != nil {
		t.Fatalf("Download: %v", err)
	}
	assertTarget(t, h.unit(t, page), "es", metadata.TargetCurrent)

	if err := h.broker.ContentChanged(ctx, page, nil); err != nil {
		t.Fatalf("ContentChanged: %v", err)
	}
	if err := h.broker.Update(ctx, page, source("2")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	h.notify(t, documentUploaded(id))
	assertTarget(t, h.unit(t, page), "es", metadata.TargetEdited)

	if err := h.broker.RequestTarget(ctx, page, "es"); err != nil {
		t.Fatalf("re-request: %v", err)
	}
	assertTarget(t, h.unit(t, page), "es", metadata.TargetPending)

	h.notify(t, targetEvent(id, "es", true, 100))
	assertTarget(t, h.unit(t, page), "es", metadata.TargetReady)
}

func TestConcurrentNotificationsAndDownloadSerialize(t *testing.T) {
	h := deduped(t)
	ctx := context.Background()
	id, _ := h.imported(t, page)
	if err := h.broker.RequestTarget(ctx, page, "de"); err != nil {
		t.Fatalf("RequestTarget: %v", err)
	}

	const notifiers = 8
	errs := make(chan error, notifiers+1)
	var wg sync.WaitGroup
	for i := 0; i < notifiers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.broker.HandleNotification(ctx, targetEvent(id, "de", true, 100))
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.broker.Download(ctx, page, "de")
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent call failed: %v", err)
		}
	}

	assertTarget(t, h.unit(t, page), "de", metadata.TargetCurrent)
	if got := h.tms.CallCount(tms.OpDownload); got != 1 {
		t.Fatalf("download calls = %d, want 1", got)
	}
}

// forgettingLocker deletes the unit row right before granting the first lock
// on key, as if the host removed the resource while a notification was routed.
type forgettingLocker struct {
	inner locking.Locker
	store *metadata.Store
	key   string
	id    int64
	once  sync.Once
}

func (l *forgettingLocker) Acquire(ctx context.Context, key string) (locking.Release, error) {
	if key == l.key {
		var err error
		l.once.Do(func() { _, err = l.store.Delete(ctx, l.id) })
		if err != nil {
			return nil, err
		}
	}
	return l.inner.Acquire(ctx, key)
}

func TestNotificationForDeletedUnitIsOrphaned(t *testing.T) {
	locker := &forgettingLocker{inner: locking.NewLocal(0)}
	h := newHarness(t, harnessOption{broker: []broker.Option{broker.WithLocker(locker)}})
	id := h.upload(t, page, "1")
	locker.store = h.store
	locker.id = h.unit(t, page).ID
	locker.key = locking.UnitKey(page.Kind, page.ID)

	decision := h.notify(t, documentUploaded(id))
	if !reflect.DeepEqual(decision, ingest.Empty()) {
		t.Fatalf("decision = %+v, want empty", decision)
	}
	if got := testutil.ToFloat64(h.metrics.NotificationsTotal.WithLabelValues("document_uploaded", "orphaned")); got != 1 {
		t.Fatalf("orphaned count = %v", got)
	}
}
