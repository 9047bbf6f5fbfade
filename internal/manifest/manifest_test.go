package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := Default()
	m.Touch(BuildInfo{BuilderVersion: "v1.0.0", BuildID: "b-1", Commit: "abc123"},
		[]Coverage{{Ecosystem: "python", Documented: 8, Total: 10}},
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	path := filepath.Join(t.TempDir(), "docs_manifest.yaml")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Categories) != len(m.Categories) {
		t.Errorf("expected %d categories, got %d", len(m.Categories), len(loaded.Categories))
	}
	if loaded.Metadata.Build.BuildID != "b-1" {
		t.Errorf("build id lost in round trip: %q", loaded.Metadata.Build.BuildID)
	}
	if !loaded.Policy.Enabled {
		t.Error("policy enabled flag lost in round trip")
	}
	if got := loaded.Metadata.Coverage[0].Ratio(); got != 0.8 {
		t.Errorf("expected coverage ratio 0.8, got %v", got)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs_manifest.yaml")
	if err := Default().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// No temp residue left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the manifest in the directory, got %d entries", len(entries))
	}
}

func TestSortedCategories(t *testing.T) {
	m := &Manifest{Categories: []Category{
		{Name: "b", Priority: 20},
		{Name: "a", Priority: 20},
		{Name: "z", Priority: 5},
	}}
	sorted := m.SortedCategories()
	if sorted[0].Name != "z" || sorted[1].Name != "a" || sorted[2].Name != "b" {
		t.Errorf("unexpected order: %v", sorted)
	}
}

func TestHashIgnoresMetadata(t *testing.T) {
	a := Default()
	b := Default()
	b.Touch(BuildInfo{BuildID: "different"}, nil, time.Now())

	ha, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, err := b.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha != hb {
		t.Error("hash must not depend on mutable metadata")
	}

	b.Categories[0].Priority = 99
	hb, err = b.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if ha == hb {
		t.Error("hash must change when categories change")
	}
}

func TestCoverageRatioEmptyEcosystem(t *testing.T) {
	c := Coverage{Ecosystem: "rust"}
	if got := c.Ratio(); got != 1.0 {
		t.Errorf("empty ecosystem should count as fully documented, got %v", got)
	}
}

func TestPolicyCadence(t *testing.T) {
	p := Policy{Cadence: "30m"}
	if got := p.CadenceDuration(); got != 30*time.Minute {
		t.Errorf("expected 30m, got %v", got)
	}
	p = Policy{Cadence: "bogus"}
	if got := p.CadenceDuration(); got != 24*time.Hour {
		t.Errorf("expected 24h default for unparseable cadence, got %v", got)
	}
}
