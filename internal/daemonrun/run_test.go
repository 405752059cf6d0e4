package daemonrun_test

import (
	"context"
	"testing"

	"tmsbridge/internal/broker"
	"tmsbridge/internal/daemonrun"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/testsupport"
)

func TestOpenWiresBroker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeTMS()
	rt, err := daemonrun.Open(cfg, nil, fake)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	ref := metadata.Ref{Kind: "node", ID: "1"}
	docID, err := rt.Broker.Upload(context.Background(), ref, broker.SourceData{Content: []byte("hello"), RevisionID: "r1"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	unit, err := rt.Store.FindByRef(context.Background(), ref)
	if err != nil || unit == nil {
		t.Fatalf("FindByRef: %v (%v)", unit, err)
	}
	if unit.DocumentID != docID || fake.CallCount("upload") != 1 {
		t.Fatalf("unexpected unit %+v", unit)
	}
}

func TestOpenBuildsHTTPClientFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := daemonrun.Open(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenRejectsUnknownLockBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Locking.Backend = "zookeeper"
	if _, err := daemonrun.Open(cfg, nil, testsupport.NewFakeTMS()); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := daemonrun.Run(context.Background(), nil, daemonrun.Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}
