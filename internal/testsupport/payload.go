package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WritePayload writes content to a temp file and returns its path.
func WritePayload(t testing.TB, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}
