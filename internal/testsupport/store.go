package testsupport

import (
	"context"
	"testing"

	"tmsbridge/internal/config"
	"tmsbridge/internal/metadata"
)

// MustOpenStore opens a metadata.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *metadata.Store {
	t.Helper()

	store, err := metadata.Open(cfg)
	if err != nil {
		t.Fatalf("metadata.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUnit creates an untracked unit for tests using the provided store.
func NewUnit(t testing.TB, store *metadata.Store, kind, id, profileID string) *metadata.Unit {
	t.Helper()

	unit, _, err := store.Ensure(context.Background(), metadata.Ref{Kind: kind, ID: id}, profileID)
	if err != nil {
		t.Fatalf("store.Ensure: %v", err)
	}
	return unit
}
