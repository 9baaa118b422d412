package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with size bytes of a repeating pattern.
// A size of zero creates an empty file.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
