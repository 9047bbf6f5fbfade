// Package pipeline orchestrates the documentation build: discover the docs
// tree, aggregate API references, synchronize the table of contents, repair
// cross-references, and refresh the manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Ace1928/docforge/internal/apidocs"
	"github.com/Ace1928/docforge/internal/config"
	"github.com/Ace1928/docforge/internal/docs"
	"github.com/Ace1928/docforge/internal/gitmeta"
	"github.com/Ace1928/docforge/internal/logfields"
	"github.com/Ace1928/docforge/internal/manifest"
	"github.com/Ace1928/docforge/internal/metrics"
	"github.com/Ace1928/docforge/internal/state"
	"github.com/Ace1928/docforge/internal/toc"
	"github.com/Ace1928/docforge/internal/validate"
	"github.com/Ace1928/docforge/internal/version"
	"github.com/Ace1928/docforge/internal/workspace"
	"github.com/Ace1928/docforge/internal/xref"
)

// Stage names in execution order.
const (
	StageDiscover = "discover"
	StageAPIDocs  = "apidocs"
	StageToc      = "toc"
	StageXref     = "xref"
	StageManifest = "manifest"
)

// Outcome labels for a finished run.
const (
	OutcomeSuccess  = "success"
	OutcomeWarning  = "warning"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// EventSink receives broken-reference findings. Satisfied by xref.Publisher.
type EventSink interface {
	PublishReport(ctx context.Context, buildID string, report *xref.Report) error
}

// Result summarizes a pipeline run.
type Result struct {
	BuildID  string
	Outcome  string
	Stages   map[string]string // stage name to success|warning|fatal|canceled
	Duration time.Duration
	Files    []docs.DocFile
	Coverage []manifest.Coverage
	TocBlock string
	Report   *xref.Report
	Outcomes []validate.Outcome
}

// Orchestrator runs the build stages against one package root.
type Orchestrator struct {
	cfg        *config.Config
	root       string
	recorder   metrics.Recorder
	store      *state.Store
	events     EventSink
	git        *gitmeta.Reader
	stagingDir string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithStore injects the build history store.
func WithStore(s *state.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithEventSink injects a broken-reference event sink.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.events = sink }
}

// WithPersistentStaging stages API pages under a fixed directory that is
// reused across runs instead of a fresh temp directory per run. Long-lived
// daemons use this so repeated builds do not churn the temp dir.
func WithPersistentStaging(dir string) Option {
	return func(o *Orchestrator) { o.stagingDir = dir }
}

// New constructs an orchestrator for the given package root.
func New(cfg *config.Config, root string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		root:     root,
		recorder: metrics.NoopRecorder{},
		git:      gitmeta.NewReader(root),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes all stages. The discover and manifest stages are fatal;
// apidocs, toc, and xref failures degrade the run to a warning so one
// misbehaving ecosystem cannot block documentation updates.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		BuildID: uuid.New().String(),
		Stages:  make(map[string]string),
	}

	slog.Info("Pipeline run starting",
		logfields.BuildID(result.BuildID),
		logfields.Root(o.root))

	type stage struct {
		name  string
		fatal bool
		run   func(context.Context, *Result) error
	}
	stages := []stage{
		{StageDiscover, true, o.runDiscover},
		{StageAPIDocs, false, o.runAPIDocs},
		{StageToc, false, o.runToc},
		{StageXref, false, o.runXref},
		{StageManifest, true, o.runManifest},
	}

	warned := false
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			result.Stages[st.name] = string(metrics.ResultCanceled)
			o.finish(ctx, result, OutcomeCanceled, start)
			return result, err
		}

		stageStart := time.Now()
		err := st.run(ctx, result)
		elapsed := time.Since(stageStart)
		o.recorder.ObserveStageDuration(st.name, elapsed)

		switch {
		case err == nil:
			result.Stages[st.name] = string(metrics.ResultSuccess)
			o.recorder.IncStageResult(st.name, metrics.ResultSuccess)
			slog.Debug("Stage completed",
				logfields.Stage(st.name),
				logfields.DurationMS(float64(elapsed.Milliseconds())))
		case st.fatal:
			result.Stages[st.name] = string(metrics.ResultFatal)
			o.recorder.IncStageResult(st.name, metrics.ResultFatal)
			slog.Error("Stage failed",
				logfields.Stage(st.name),
				logfields.Error(err))
			o.finish(ctx, result, OutcomeFailed, start)
			return result, fmt.Errorf("stage %s: %w", st.name, err)
		default:
			warned = true
			result.Stages[st.name] = string(metrics.ResultWarning)
			o.recorder.IncStageResult(st.name, metrics.ResultWarning)
			slog.Warn("Stage degraded",
				logfields.Stage(st.name),
				logfields.Error(err))
		}
	}

	outcome := OutcomeSuccess
	if warned {
		outcome = OutcomeWarning
	}
	o.finish(ctx, result, outcome, start)
	return result, nil
}

func (o *Orchestrator) finish(ctx context.Context, result *Result, outcome string, start time.Time) {
	result.Outcome = outcome
	result.Duration = time.Since(start)
	o.recorder.ObserveBuildDuration(result.Duration)
	o.recorder.IncBuildOutcome(outcome)

	if o.store != nil {
		succeeded := outcome == OutcomeSuccess || outcome == OutcomeWarning
		if err := o.store.RecordBuild(ctx, result.BuildID, succeeded, result.Stages); err != nil {
			slog.Warn("Failed to record build", logfields.Error(err))
		}
	}

	slog.Info("Pipeline run finished",
		logfields.BuildID(result.BuildID),
		slog.String("outcome", outcome),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
}

func (o *Orchestrator) docsDir() string {
	return filepath.Join(o.root, o.cfg.Docs.Dir)
}

func (o *Orchestrator) runDiscover(_ context.Context, result *Result) error {
	d := docs.NewDiscovery(o.docsDir())
	files, err := d.Discover()
	if err != nil {
		return err
	}
	result.Files = files
	o.recorder.SetDocFiles(len(files))
	return nil
}

// runAPIDocs renders API reference pages for each configured ecosystem into
// a staging workspace, then commits the whole tree atomically to the
// configured output dir.
func (o *Orchestrator) runAPIDocs(ctx context.Context, result *Result) error {
	if len(o.cfg.Ecosystems) == 0 {
		return nil
	}

	var ws *workspace.Manager
	if o.stagingDir != "" {
		ws = workspace.NewPersistentManager(o.stagingDir, "staging")
	} else {
		ws = workspace.NewManager("")
	}
	if err := ws.Create(); err != nil {
		return err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to clean staging workspace", logfields.Error(err))
		}
	}()

	staged, err := ws.CreateSubdir("api")
	if err != nil {
		return err
	}

	var firstErr error
	for _, eco := range o.cfg.Ecosystems {
		if err := ctx.Err(); err != nil {
			return err
		}

		sourceDir := filepath.Join(o.root, filepath.FromSlash(eco.SourceDir))
		entities, cov, err := apidocs.ScanEcosystem(eco.Name, sourceDir, eco.Exclude)
		if err != nil {
			slog.Warn("Ecosystem scan failed",
				logfields.Ecosystem(eco.Name),
				logfields.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		outDir := filepath.Join(staged, eco.Name)
		if _, err := apidocs.RenderPages(eco.Name, entities, outDir); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		mcov := manifest.Coverage{Ecosystem: cov.Ecosystem, Documented: cov.Documented, Total: cov.Total}
		result.Coverage = append(result.Coverage, mcov)
		o.recorder.SetCoverageRatio(eco.Name, mcov.Ratio())
	}

	if len(result.Coverage) > 0 {
		target := filepath.Join(o.root, filepath.FromSlash(o.cfg.Docs.OutputDir))
		if err := ws.Commit(staged, target); err != nil {
			return err
		}
	}
	return firstErr
}

func (o *Orchestrator) runToc(_ context.Context, result *Result) error {
	if o.cfg.Toc.Enabled != nil && !*o.cfg.Toc.Enabled {
		return nil
	}

	builder := &toc.Builder{SectionWeight: o.sectionWeight(), TocFile: o.cfg.Toc.File}
	result.TocBlock = builder.Build(result.Files)
	if result.TocBlock == "" {
		return nil
	}

	tocPath := filepath.Join(o.docsDir(), o.cfg.Toc.File)
	changed, err := toc.Sync(tocPath, result.TocBlock)
	if err != nil {
		return err
	}
	if changed {
		slog.Info("Table of contents updated", logfields.File(o.cfg.Toc.File))
	}
	return nil
}

// sectionWeight orders TOC sections by manifest category priority when a
// manifest exists. Sections without a declared category sort last.
func (o *Orchestrator) sectionWeight() func(string) int {
	m, err := manifest.Load(filepath.Join(o.root, o.cfg.Docs.ManifestPath))
	if err != nil {
		return nil
	}

	weights := make(map[string]int, len(m.Categories))
	for _, cat := range m.Categories {
		base := filepath.Base(filepath.FromSlash(cat.Path))
		weights[base] = cat.Priority
	}
	return func(section string) int {
		if w, ok := weights[filepath.Base(section)]; ok {
			return w
		}
		return 1000
	}
}

// docsChangedAt returns the most recent commit time across the discovered
// docs files, the zero time outside a git repository.
func (o *Orchestrator) docsChangedAt(files []docs.DocFile) time.Time {
	var latest time.Time
	for i := range files {
		if t := o.git.LastModified(files[i].Path); t.After(latest) {
			latest = t
		}
	}
	return latest
}

func (o *Orchestrator) runXref(ctx context.Context, result *Result) error {
	r := &xref.Repairer{
		DocsDir:     o.docsDir(),
		Write:       o.cfg.Xref.Write,
		ScanHTML:    o.cfg.Xref.ScanHTML,
		IgnoreGlobs: o.cfg.Xref.IgnoreGlobs,
	}
	report, err := r.Run(result.Files)
	if err != nil {
		return err
	}
	result.Report = report
	o.recorder.AddBrokenRefs(len(report.Broken()))

	if o.store != nil {
		for _, f := range report.Findings {
			if f.Status != xref.StatusRepaired && f.Status != xref.StatusBroken {
				continue
			}
			if err := o.store.RecordRepair(ctx, result.BuildID, f.Source, f.Destination, f.NewDestination, string(f.Status)); err != nil {
				slog.Warn("Failed to record repair", logfields.Error(err))
			}
		}
	}

	if o.events != nil && len(report.Broken()) > 0 {
		if err := o.events.PublishReport(ctx, result.BuildID, report); err != nil {
			return fmt.Errorf("publish broken-ref events: %w", err)
		}
	}
	return nil
}

// runManifest refreshes build metadata, runs the policy rules, and writes
// the manifest back atomically.
func (o *Orchestrator) runManifest(ctx context.Context, result *Result) error {
	manifestPath := filepath.Join(o.root, o.cfg.Docs.ManifestPath)

	m, err := manifest.Load(manifestPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		slog.Info("No manifest found, seeding default", logfields.Path(o.cfg.Docs.ManifestPath))
		m = manifest.Default()
	}

	info := manifest.BuildInfo{
		BuilderVersion: version.Version,
		BuildID:        result.BuildID,
		Commit:         o.git.Info().Commit,
	}
	now := time.Now().UTC()
	m.Touch(info, result.Coverage, now)

	vctx := validate.Context{
		Root:          o.root,
		Manifest:      m,
		Coverage:      result.Coverage,
		TocPath:       filepath.Join(o.docsDir(), o.cfg.Toc.File),
		TocBlock:      result.TocBlock,
		XrefReport:    result.Report,
		CoverageFloor: o.cfg.Validation.CoverageFloor,
		DocsChangedAt: o.docsChangedAt(result.Files),
		Now:           now,
	}
	result.Outcomes = validate.NewEvaluator().Run(ctx, vctx)

	if o.store != nil {
		for _, out := range result.Outcomes {
			if err := o.store.RecordValidation(ctx, result.BuildID, out.Rule, out.Result.Passed, out.Result.Reason); err != nil {
				slog.Warn("Failed to record validation", logfields.Error(err))
			}
		}
	}

	return m.Save(manifestPath)
}
