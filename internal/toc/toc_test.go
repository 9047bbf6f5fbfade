package toc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ace1928/docforge/internal/docs"
)

func discoverFixture(t *testing.T) []docs.DocFile {
	t.Helper()
	docsDir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(docsDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	write("index.md", "---\ntitle: Welcome\n---\n# Ignored\n")
	write("guides/setup.md", "# Setting Things Up\n\ntext\n")
	write("guides/first-steps.md", "no heading here\n")
	write("reference/cli.md", "# CLI\n")
	write("assets/logo.png", "png")

	d := docs.NewDiscovery(docsDir)
	files, err := d.Discover()
	require.NoError(t, err)
	return files
}

func TestBuild(t *testing.T) {
	files := discoverFixture(t)
	weights := map[string]int{"reference": 10, "guides": 20}
	b := &Builder{SectionWeight: func(s string) int {
		if w, ok := weights[s]; ok {
			return w
		}
		return 1000
	}}

	block := b.Build(files)

	assert.True(t, strings.HasPrefix(block, markerStart))
	assert.True(t, strings.HasSuffix(block, markerEnd+"\n"))

	// Front matter title wins, then first heading, then file name.
	assert.Contains(t, block, "- [Welcome](index.md)")
	assert.Contains(t, block, "- [Setting Things Up](guides/setup.md)")
	assert.Contains(t, block, "- [First Steps](guides/first-steps.md)")
	assert.NotContains(t, block, "logo", "assets stay out of the TOC")

	// Root pages first, then sections by weight.
	welcome := strings.Index(block, "[Welcome]")
	reference := strings.Index(block, "## Reference")
	guides := strings.Index(block, "## Guides")
	assert.Less(t, welcome, reference)
	assert.Less(t, reference, guides)
}

func TestBuildExcludesTocFile(t *testing.T) {
	docsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "index.md"), []byte("# Home\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "SUMMARY.md"), []byte("# Table of Contents\n"), 0o600))

	files, err := docs.NewDiscovery(docsDir).Discover()
	require.NoError(t, err)

	b := &Builder{TocFile: "SUMMARY.md"}
	block := b.Build(files)

	assert.Contains(t, block, "(index.md)")
	assert.NotContains(t, block, "(SUMMARY.md)", "the TOC must not list itself")

	// A tree already containing the TOC file stays in sync on rebuild.
	tocPath := filepath.Join(docsDir, "SUMMARY.md")
	_, err = Sync(tocPath, block)
	require.NoError(t, err)

	files, err = docs.NewDiscovery(docsDir).Discover()
	require.NoError(t, err)
	assert.False(t, NeedsSync(tocPath, b.Build(files)))
}

func TestBuildDeterministic(t *testing.T) {
	files := discoverFixture(t)
	b := &Builder{}
	assert.Equal(t, b.Build(files), b.Build(files))
}

func TestSyncCreatesAndIsIdempotent(t *testing.T) {
	files := discoverFixture(t)
	b := &Builder{}
	block := b.Build(files)

	tocPath := filepath.Join(t.TempDir(), "SUMMARY.md")
	changed, err := Sync(tocPath, block)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second run is a no-op, byte for byte.
	before, err := os.ReadFile(tocPath)
	require.NoError(t, err)
	changed, err = Sync(tocPath, block)
	require.NoError(t, err)
	assert.False(t, changed)
	after, err := os.ReadFile(tocPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.False(t, NeedsSync(tocPath, block))
}

func TestSyncPreservesSurroundingProse(t *testing.T) {
	tocPath := filepath.Join(t.TempDir(), "SUMMARY.md")
	existing := "Intro prose.\n\n" + markerStart + "\nstale\n" + markerEnd + "\n\nOutro prose.\n"
	require.NoError(t, os.WriteFile(tocPath, []byte(existing), 0o600))

	files := discoverFixture(t)
	b := &Builder{}
	changed, err := Sync(tocPath, b.Build(files))
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(tocPath)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "Intro prose.\n"))
	assert.True(t, strings.HasSuffix(content, "Outro prose.\n"))
	assert.NotContains(t, content, "stale")
	assert.Contains(t, content, "# Table of Contents")
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "First Steps", SectionTitle("first-steps"))
	assert.Equal(t, "Api Notes", SectionTitle("api_notes"))
}
