package apidocs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPages(t *testing.T) {
	entities := []Entity{
		{Name: "bare", Kind: KindFunction, Module: "doc_forge.tools", File: "doc_forge/tools.py", Line: 20},
		{Name: "Analyzer", Kind: KindType, Module: "doc_forge.tools", File: "doc_forge/tools.py", Line: 2, Documented: true},
		{Name: "main", Kind: KindFunction, Module: "doc_forge.cli", File: "doc_forge/cli.py", Line: 5, Documented: true},
	}

	outDir := t.TempDir()
	written, err := RenderPages("python", entities, outDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc_forge_tools.md", "doc_forge_cli.md", "index.md"}, written)

	page, err := os.ReadFile(filepath.Join(outDir, "doc_forge_tools.md"))
	require.NoError(t, err)
	content := string(page)
	assert.Contains(t, content, "# Module `doc_forge.tools`")
	assert.Contains(t, content, "## Types")
	assert.Contains(t, content, "- `Analyzer` (doc_forge/tools.py:2)")
	assert.Contains(t, content, "*(undocumented)*", "undocumented entities are flagged")

	// Generated pages stick to ASCII.
	for _, r := range content {
		assert.Less(t, r, rune(128), "non-ASCII character in generated page")
	}

	index, err := os.ReadFile(filepath.Join(outDir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "# Python API Reference")
	assert.Contains(t, string(index), "(doc_forge_cli.md)")
}

func TestRenderPagesNoEntities(t *testing.T) {
	outDir := t.TempDir()
	written, err := RenderPages("rust", nil, outDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.md"}, written)
}
