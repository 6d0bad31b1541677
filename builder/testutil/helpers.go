// Package testutil provides testing utilities and fixtures
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/cache"
)

// Logger returns a logger that writes nowhere.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestCache opens a cache in a temp dir that is closed when the test ends.
func CreateTestCache(t testing.TB) *cache.Manager {
	t.Helper()
	m, err := cache.Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// CreateTestFilesystem returns an in-memory filesystem holding files.
func CreateTestFilesystem(t testing.TB, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return fs
}

// ReadFile returns the content of path, failing the test when it is missing.
func ReadFile(t testing.TB, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// AssertFileExists checks if a file exists in the filesystem
func AssertFileExists(t testing.TB, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if !exists {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t testing.TB, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if exists {
		t.Errorf("Expected file to not exist: %s", path)
	}
}
