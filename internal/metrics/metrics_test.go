package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tmsbridge/internal/metrics"
)

func TestCollectorsRecord(t *testing.T) {
	c := metrics.New()
	c.Notification("target", "ok", 10*time.Millisecond)
	c.Notification("target", "ok", 10*time.Millisecond)
	c.ObserveTMSRequest("upload", "ok", time.Second)
	c.Transition("target", "READY")

	if got := testutil.ToFloat64(c.NotificationsTotal.WithLabelValues("target", "ok")); got != 2 {
		t.Fatalf("notifications_total = %v", got)
	}
	if got := testutil.ToFloat64(c.TMSRequestsTotal.WithLabelValues("upload", "ok")); got != 1 {
		t.Fatalf("tms requests_total = %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `tmsbridge_lifecycle_transitions_total{scope="target",status="READY"} 1`) {
		t.Fatalf("exposition missing transition counter:\n%s", body)
	}
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *metrics.Collectors
	c.Notification("target", "ok", time.Millisecond)
	c.ObserveTMSRequest("upload", "ok", time.Millisecond)
	c.Decision("download")
	c.Transition("source", "CURRENT")
	c.Action("upload", "ok")
	c.EventPublished("CURRENT")
	c.LockWait(time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil handler, got %d", rec.Code)
	}
}
