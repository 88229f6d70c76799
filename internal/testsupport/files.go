package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"smartcut/internal/config"
)

// WriteFile writes size filler bytes to path, creating parent directories.
// A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(max(size, 1))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSource places a placeholder source video under the config's inbox
// directory and returns its path. The media tool is faked in tests, so the
// content only has to exist.
func WriteSource(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(BaseDir(cfg), "inbox", name)
	WriteFile(t, path, 64)
	return path
}
