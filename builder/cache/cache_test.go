package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestCache creates a temporary cache for testing
func createTestCache(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestOpen_NewCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")

	m, err := Open(cacheDir, false)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	}()

	if _, err := os.Stat(filepath.Join(cacheDir, "meta.db")); err != nil {
		t.Errorf("meta.db should be created: %v", err)
	}
}

func TestSaveAndLookup(t *testing.T) {
	m := createTestCache(t)

	tests := []struct {
		name    string
		content []byte
	}{
		{"small raw", []byte("<style>a{color:red}</style>")},
		{"compressed", bytes.Repeat([]byte("<p>critical</p>"), 2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := HashContent([]byte(tt.name))
			if err := m.Save(NamespaceCritical, key, "index.html", tt.content); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}
			got, ok, err := m.Lookup(NamespaceCritical, key)
			if err != nil {
				t.Fatalf("Lookup() failed: %v", err)
			}
			if !ok {
				t.Fatal("Lookup() should hit after Save()")
			}
			if !bytes.Equal(got, tt.content) {
				t.Errorf("Lookup() returned %d bytes, want %d", len(got), len(tt.content))
			}
		})
	}
}

func TestLookup_Miss(t *testing.T) {
	m := createTestCache(t)

	_, ok, err := m.Lookup(NamespaceSocial, "nope")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if ok {
		t.Error("Lookup() should miss on empty cache")
	}

	if err := m.Save(NamespaceSocial, "k", "card", []byte("jpeg")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Lookup(NamespaceCritical, "k"); ok {
		t.Error("namespaces must not share keys")
	}
}

func TestStatsAndClear(t *testing.T) {
	m := createTestCache(t)

	_ = m.Save(NamespaceCritical, "a", "a.html", []byte("a"))
	_ = m.Save(NamespaceCritical, "b", "b.html", []byte("b"))
	_ = m.Save(NamespaceSocial, "c", "c", []byte("c"))
	_ = m.IncrementBuildCount()
	_ = m.IncrementBuildCount()

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Artifacts[NamespaceCritical] != 2 || stats.Artifacts[NamespaceSocial] != 1 {
		t.Errorf("Artifacts = %v", stats.Artifacts)
	}
	if stats.BuildCount != 2 {
		t.Errorf("BuildCount = %d, want 2", stats.BuildCount)
	}
	if stats.StoreBytes != 3 {
		t.Errorf("StoreBytes = %d, want 3", stats.StoreBytes)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	stats, err = m.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Artifacts) != 0 || stats.BuildCount != 0 {
		t.Errorf("Stats after Clear() = %+v", stats)
	}
}

func TestPrune(t *testing.T) {
	m := createTestCache(t)

	if err := m.Save(NamespaceCritical, "page", "index.html", []byte("old output")); err != nil {
		t.Fatal(err)
	}
	// Overwriting the record orphans the first blob.
	if err := m.Save(NamespaceCritical, "page", "index.html", []byte("new output")); err != nil {
		t.Fatal(err)
	}

	removed, freed, err := m.Prune()
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if removed != 1 || freed != int64(len("old output")) {
		t.Errorf("Prune() = %d, %d", removed, freed)
	}

	got, ok, _ := m.Lookup(NamespaceCritical, "page")
	if !ok || !strings.Contains(string(got), "new") {
		t.Errorf("live artifact lost: %q %v", got, ok)
	}
}
