package docs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDiscover(t *testing.T) {
	docsDir := t.TempDir()
	writeFile(t, filepath.Join(docsDir, "index.md"), "# Home")
	writeFile(t, filepath.Join(docsDir, "guides", "setup.md"), "# Setup")
	writeFile(t, filepath.Join(docsDir, "assets", "logo.png"), "png")
	writeFile(t, filepath.Join(docsDir, "guides", "notes.txt"), "not docs")
	writeFile(t, filepath.Join(docsDir, ".hidden.md"), "skip me")
	writeFile(t, filepath.Join(docsDir, ".cache", "stale.md"), "skip dir")

	d := NewDiscovery(docsDir)
	files, err := d.Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}

	// Sorted by relative path.
	if files[0].RelativePath != filepath.Join("assets", "logo.png") {
		t.Errorf("unexpected first file: %s", files[0].RelativePath)
	}
	if !files[0].IsAsset {
		t.Error("png must be classified as asset")
	}

	sections := d.BySection()
	if len(sections["guides"]) != 1 {
		t.Errorf("expected one file in guides section, got %d", len(sections["guides"]))
	}
	if len(sections[""]) != 1 {
		t.Errorf("expected one root-level file, got %d", len(sections[""]))
	}

	md := d.Markdown()
	if len(md) != 2 {
		t.Errorf("expected 2 markdown files, got %d", len(md))
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	d := NewDiscovery(filepath.Join(t.TempDir(), "nope"))
	if _, err := d.Discover(); !errors.Is(err, ErrDocsDirMissing) {
		t.Errorf("expected ErrDocsDirMissing, got %v", err)
	}
}

func TestLoadContent(t *testing.T) {
	docsDir := t.TempDir()
	writeFile(t, filepath.Join(docsDir, "page.md"), "# Page")

	d := NewDiscovery(docsDir)
	files, err := d.Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if err := files[0].LoadContent(); err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}
	if string(files[0].Content) != "# Page" {
		t.Errorf("unexpected content: %q", files[0].Content)
	}

	// Idempotent.
	if err := files[0].LoadContent(); err != nil {
		t.Fatalf("second LoadContent failed: %v", err)
	}
}
