package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFiles creates each file (relative to root, slash separated) with the
// given contents, creating parent directories as needed.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// WriteScript writes an executable POSIX shell script into a fresh temporary
// directory and returns its path. The "#!/bin/sh" line is prepended.
//
// Callers must skip on Windows, see SkipIfWindows.
func WriteScript(t testing.TB, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
