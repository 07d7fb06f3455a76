package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// BaseTime is a whole-second timestamp used for file modification times.
var BaseTime = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

// WriteFile creates path, and any missing parents, with content and the
// given modification time. A zero mtime keeps whatever the OS assigned.
func WriteFile(t *testing.T, path, content string, mtime time.Time) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if !mtime.IsZero() {
		SetModTime(t, path, mtime)
	}
	return path
}

// WriteTree creates root and one file per entry of files (slash-separated
// relative path to content), all stamped with BaseTime.
func WriteTree(t *testing.T, root string, files map[string]string) string {
	t.Helper()

	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("creating %s: %v", root, err)
	}
	for rel, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), content, BaseTime)
	}
	return root
}

// SetModTime changes the modification time of path.
func SetModTime(t *testing.T, path string, mtime time.Time) {
	t.Helper()

	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting mtime of %s: %v", path, err)
	}
}

// ModTime returns the modification time of path.
func ModTime(t *testing.T, path string) time.Time {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.ModTime()
}

// ReadFile returns the contents of path.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
