package apidocs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestPythonScanner(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "doc_forge/tools.py", `
class Analyzer:
    """Analyzes things."""

    def analyze(self):
        """Do the analysis."""
        pass

    def _private(self):
        pass

def helper(
    a,
    b,
):
    """Docstring after a multi-line signature."""
    return a

def bare():
    return 1
`)

	entities, cov, err := ScanEcosystem("python", src, nil)
	require.NoError(t, err)

	names := map[string]Entity{}
	for _, e := range entities {
		names[e.Name] = e
	}

	assert.Contains(t, names, "Analyzer")
	assert.Equal(t, KindType, names["Analyzer"].Kind)
	assert.True(t, names["Analyzer"].Documented)
	assert.True(t, names["analyze"].Documented)
	assert.True(t, names["helper"].Documented)
	assert.False(t, names["bare"].Documented)
	assert.NotContains(t, names, "_private")

	assert.Equal(t, "doc_forge.tools", names["helper"].Module)
	assert.Equal(t, "python", cov.Ecosystem)
	assert.Equal(t, 4, cov.Total)
	assert.Equal(t, 3, cov.Documented)
}

func TestGoScanner(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "pkg/api.go", `package pkg

// Client talks to the service.
type Client struct{}

// New creates a Client.
func New() *Client { return nil }

func internal() {}

func Undocumented() {}

// Method has a receiver.
func (c *Client) Method() {}
`)
	writeSource(t, src, "pkg/api_test.go", `package pkg

func TestNothing(t *testing.T) {}
`)

	entities, cov, err := ScanEcosystem("go", src, nil)
	require.NoError(t, err)

	names := map[string]Entity{}
	for _, e := range entities {
		names[e.Name] = e
	}

	assert.Contains(t, names, "Client")
	assert.Contains(t, names, "New")
	assert.Contains(t, names, "Method")
	assert.NotContains(t, names, "internal", "unexported functions are skipped")
	assert.False(t, names["Undocumented"].Documented)
	assert.Equal(t, 4, cov.Total, "test files must be excluded")
}

func TestJavaScriptScanner(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "lib/index.js", `
/**
 * Builds the site.
 */
function build(opts) {}

class Pipeline {}

exports.run = function () {};
`)

	entities, _, err := ScanEcosystem("javascript", src, nil)
	require.NoError(t, err)
	require.Len(t, entities, 3)

	names := map[string]Entity{}
	for _, e := range entities {
		names[e.Name] = e
	}
	assert.True(t, names["build"].Documented)
	assert.False(t, names["Pipeline"].Documented)
	assert.Equal(t, KindFunction, names["run"].Kind)
}

func TestRustScanner(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "src/lib.rs", `
/// A parsed document.
#[derive(Debug)]
pub struct Document {}

pub fn parse(input: &str) -> Document { Document {} }

fn private_helper() {}
`)

	entities, cov, err := ScanEcosystem("rust", src, nil)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	names := map[string]Entity{}
	for _, e := range entities {
		names[e.Name] = e
	}
	assert.True(t, names["Document"].Documented, "doc comment above attributes counts")
	assert.False(t, names["parse"].Documented)
	assert.Equal(t, 2, cov.Total)
}

func TestScannerExcludes(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "keep.py", "def kept():\n    pass\n")
	writeSource(t, src, "generated.py", "def skipped():\n    pass\n")

	entities, _, err := ScanEcosystem("python", src, []string{"generated.py"})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "kept", entities[0].Name)
}

func TestScannerForUnknown(t *testing.T) {
	_, err := ScannerFor("cobol")
	require.Error(t, err)
}
