package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ace1928/docforge/internal/config"
	"github.com/Ace1928/docforge/internal/manifest"
	"github.com/Ace1928/docforge/internal/state"
	"github.com/Ace1928/docforge/internal/validate"
	"github.com/Ace1928/docforge/internal/xref"
)

type capturingSink struct {
	buildID string
	broken  int
}

func (c *capturingSink) PublishReport(_ context.Context, buildID string, report *xref.Report) error {
	c.buildID = buildID
	c.broken = len(report.Broken())
	return nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Ecosystems = []config.Ecosystem{{Name: "python", SourceDir: "src"}}
	return cfg
}

func seedRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "docs/index.md", "# Home\n\nSee [guide](guides/setup.md).\n")
	writeFile(t, root, "docs/guides/setup.md", "# Setup\n")
	writeFile(t, root, "src/doc_forge/core.py", "def run():\n    \"\"\"Run the tool.\"\"\"\n    pass\n")
	return root
}

func TestOrchestrator_FullRun(t *testing.T) {
	root := seedRoot(t)
	cfg := testConfig()

	result, err := New(cfg, root).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.NotEmpty(t, result.BuildID)
	for _, stage := range []string{StageDiscover, StageAPIDocs, StageToc, StageXref, StageManifest} {
		assert.Equal(t, "success", result.Stages[stage], stage)
	}

	// API pages committed under docs/api.
	assert.FileExists(t, filepath.Join(root, "docs", "api", "python", "index.md"))

	// TOC created.
	tocData, err := os.ReadFile(filepath.Join(root, "docs", "SUMMARY.md"))
	require.NoError(t, err)
	assert.Contains(t, string(tocData), "index.md")

	// Manifest seeded and touched.
	m, err := manifest.Load(filepath.Join(root, cfg.Docs.ManifestPath))
	require.NoError(t, err)
	assert.Equal(t, result.BuildID, m.Metadata.Build.BuildID)
	assert.False(t, m.Metadata.LastUpdated.IsZero())
	require.Len(t, m.Metadata.Coverage, 1)
	assert.Equal(t, "python", m.Metadata.Coverage[0].Ecosystem)
}

func TestOrchestrator_MissingDocsDirIsFatal(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig()

	result, err := New(cfg, root).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "fatal", result.Stages[StageDiscover])
}

func TestOrchestrator_UnknownEcosystemDegradesToWarning(t *testing.T) {
	root := seedRoot(t)
	cfg := testConfig()
	cfg.Ecosystems = []config.Ecosystem{{Name: "cobol", SourceDir: "src"}}

	result, err := New(cfg, root).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, result.Outcome)
	assert.Equal(t, "warning", result.Stages[StageAPIDocs])
	assert.Equal(t, "success", result.Stages[StageManifest])
}

func TestOrchestrator_CommitsToConfiguredOutputDir(t *testing.T) {
	root := seedRoot(t)
	cfg := testConfig()
	cfg.Docs.OutputDir = "generated/api"

	result, err := New(cfg, root).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.FileExists(t, filepath.Join(root, "generated", "api", "python", "index.md"))
	assert.NoFileExists(t, filepath.Join(root, "docs", "api", "python", "index.md"))
}

func TestOrchestrator_PersistentStagingSurvivesRuns(t *testing.T) {
	root := seedRoot(t)
	cfg := testConfig()
	stagingBase := t.TempDir()

	o := New(cfg, root, WithPersistentStaging(stagingBase))
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	// The fixed staging dir is kept for the next run instead of removed.
	assert.DirExists(t, filepath.Join(stagingBase, "staging"))

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "docs", "api", "python", "index.md"))
}

func TestOrchestrator_PublishesBrokenRefs(t *testing.T) {
	root := seedRoot(t)
	writeFile(t, root, "docs/broken.md", "See [gone](nowhere.md).\n")
	cfg := testConfig()
	cfg.Ecosystems = nil

	sink := &capturingSink{}
	result, err := New(cfg, root, WithEventSink(sink)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, result.BuildID, sink.buildID)
	assert.Equal(t, 1, sink.broken)
}

func TestOrchestrator_RecordsHistory(t *testing.T) {
	root := seedRoot(t)
	writeFile(t, root, "docs/broken.md", "See [gone](nowhere.md).\n")
	cfg := testConfig()
	cfg.Ecosystems = nil

	store, err := state.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	result, err := New(cfg, root, WithStore(store)).Run(ctx)
	require.NoError(t, err)

	last, err := store.LastBuild(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, result.BuildID, last.BuildID)
	assert.True(t, last.Succeeded)

	runs, err := store.ValidationsByBuild(ctx, result.BuildID)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)

	repairs, err := store.RepairsByBuild(ctx, result.BuildID)
	require.NoError(t, err)
	require.Len(t, repairs, 1)
	assert.Equal(t, "broken", repairs[0].Status)
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	root := seedRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(testConfig(), root).Run(ctx)
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, result.Outcome)
	assert.Equal(t, "canceled", result.Stages[StageDiscover])
}

func TestOrchestrator_TocDisabled(t *testing.T) {
	root := seedRoot(t)
	cfg := testConfig()
	cfg.Ecosystems = nil
	disabled := false
	cfg.Toc.Enabled = &disabled

	result, err := New(cfg, root).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Empty(t, result.TocBlock)
	assert.NoFileExists(t, filepath.Join(root, "docs", "SUMMARY.md"))
}

func TestOrchestrator_SecondRunIsStable(t *testing.T) {
	root := seedRoot(t)
	cfg := testConfig()
	cfg.Ecosystems = nil

	o := New(cfg, root)
	first, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, first.Outcome)

	second, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, second.Outcome)
	assert.NotEqual(t, first.BuildID, second.BuildID)

	// The TOC written on the first run must not appear in its own block.
	tocData, err := os.ReadFile(filepath.Join(root, "docs", "SUMMARY.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(tocData), "(SUMMARY.md)")
	for _, out := range second.Outcomes {
		if out.Rule == validate.RuleTocSynced {
			assert.True(t, out.Result.Passed, out.Result.Reason)
		}
	}
}
