package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Ace1928/docforge/internal/apidocs"
	"github.com/Ace1928/docforge/internal/bootstrap"
	"github.com/Ace1928/docforge/internal/config"
	"github.com/Ace1928/docforge/internal/daemon"
	"github.com/Ace1928/docforge/internal/docs"
	"github.com/Ace1928/docforge/internal/manifest"
	"github.com/Ace1928/docforge/internal/metrics"
	"github.com/Ace1928/docforge/internal/pipeline"
	"github.com/Ace1928/docforge/internal/state"
	"github.com/Ace1928/docforge/internal/toc"
	"github.com/Ace1928/docforge/internal/validate"
	"github.com/Ace1928/docforge/internal/version"
	"github.com/Ace1928/docforge/internal/xref"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"docforge.yaml"`
	Root    string `short:"r" help:"Package root (located automatically when empty)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Script  string `short:"s" help:"Script path used for root location (defaults to the binary)"`
		Package string `short:"p" help:"Package name to locate and load" default:"doc_forge"`
	} `cmd:"" help:"Locate the package root, resolve the entry point, and run it"`

	Build struct{} `cmd:"" help:"Run the full documentation pipeline once"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Scan struct {
		Ecosystem string `short:"e" help:"Scan a single ecosystem (all configured when empty)"`
	} `cmd:"" help:"Scan source trees and report API documentation coverage"`

	Toc struct {
		Check bool `help:"Report whether the TOC is in sync without writing"`
	} `cmd:"" help:"Synchronize the table of contents with discovered docs"`

	Xref struct {
		Write bool `short:"w" help:"Rewrite repairable links in place"`
	} `cmd:"" help:"Scan cross-references, repairing moved targets"`

	Validate struct{} `cmd:"" help:"Run the manifest policy rules against the docs tree"`

	Daemon struct{} `cmd:"" help:"Run in living-docs mode: watch, rebuild, revalidate"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Flag-driven logging until the config is read; the config file may
	// itself fail to load and that failure needs a logger.
	setupLogging(nil)

	// init and version must work without a loadable config: init --force is
	// the way out of a broken config file.
	switch ctx.Command() {
	case "init":
		if err := runInit(); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		return
	case "version":
		fmt.Printf("docforge %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg := loadConfig()
	setupLogging(cfg)

	switch ctx.Command() {
	case "run":
		runEntry(cfg)
	case "build":
		if err := runBuild(cfg); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "scan":
		if err := runScan(cfg); err != nil {
			slog.Error("Scan failed", "error", err)
			os.Exit(1)
		}
	case "toc":
		if err := runToc(cfg); err != nil {
			slog.Error("TOC sync failed", "error", err)
			os.Exit(1)
		}
	case "xref":
		if err := runXref(cfg); err != nil {
			slog.Error("Cross-reference scan failed", "error", err)
			os.Exit(1)
		}
	case "validate":
		if err := runValidate(cfg); err != nil {
			slog.Error("Validation failed", "error", err)
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	}
}

// setupLogging installs the default logger: level and format from the
// config's logging block, with --verbose forcing debug. A nil config means
// the flag alone decides.
func setupLogging(cfg *config.Config) {
	logging := config.LoggingConfig{}
	if cfg != nil {
		logging = cfg.Logging
	}
	level := logging.SlogLevel()
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, level)))
}

// loadConfig reads the config file when present, otherwise defaults. A
// missing file is normal for ad-hoc invocations outside a configured repo;
// any other load failure means the user wrote a config and it is being
// ignored, so fail loudly.
func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No configuration file, using defaults", "path", CLI.Config)
			return config.Default()
		}
		slog.Error("Failed to load configuration", "path", CLI.Config, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// resolveRoot picks the package root: explicit flag, then config, then the
// lenient locator walk.
func resolveRoot(cfg *config.Config, script string) string {
	if CLI.Root != "" {
		return CLI.Root
	}
	if cfg != nil && cfg.Root != "" {
		return cfg.Root
	}
	if script == "" {
		script, _ = os.Executable()
	}
	locator := bootstrap.NewLocator(script)
	if cfg != nil && cfg.Package != "" {
		locator.Package = cfg.Package
	}
	return locator.Root()
}

// runEntry implements the bootstrap shim: locate the root leniently, then
// resolve the entry point strictly and hand over the process exit code.
// The built-in pipeline entry is registered under the default package name
// so a bare install resolves without any on-disk package.
func runEntry(cfg *config.Config) {
	script := CLI.Run.Script
	if script == "" {
		script, _ = os.Executable()
	}
	locator := bootstrap.NewLocator(script)
	locator.Package = CLI.Run.Package
	root := locator.Root()

	// The registry is the first resolution tier, so the built-in is only
	// installed when no on-disk package would otherwise win.
	if _, err := os.Stat(filepath.Join(root, "src", CLI.Run.Package)); err != nil {
		bootstrap.Register(bootstrap.DefaultPackage, func() int {
			if err := runBuild(cfg); err != nil {
				slog.Error("Pipeline failed", "error", err)
				return 1
			}
			return 0
		})
	}

	slog.Debug("Package root located", "root", root, "package", CLI.Run.Package)

	loader := bootstrap.NewLoader(CLI.Run.Package)
	entry, err := loader.Resolve(root)
	if err != nil {
		if errors.Is(err, bootstrap.ErrEntryPointNotFound) {
			slog.Error("Entry point not found",
				"package", CLI.Run.Package,
				"root", root,
				"error", err)
		} else {
			slog.Error("Entry point failed to load", "error", err)
		}
		os.Exit(1)
	}
	os.Exit(entry())
}

// runInit writes the example configuration and seeds a default manifest so
// a fresh repo validates out of the box.
func runInit() error {
	if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
		return err
	}

	cfg := loadConfig()
	root := resolveRoot(cfg, "")
	manifestPath := filepath.Join(root, cfg.Docs.ManifestPath)
	if _, err := os.Stat(manifestPath); err == nil && !CLI.Init.Force {
		return nil
	}
	if err := manifest.Default().Save(manifestPath); err != nil {
		return fmt.Errorf("seed manifest: %w", err)
	}
	slog.Info("Seeded default manifest", "path", manifestPath)
	return nil
}

func newOrchestrator(cfg *config.Config, root string, extra ...pipeline.Option) (*pipeline.Orchestrator, func(), error) {
	opts := append([]pipeline.Option(nil), extra...)
	cleanup := func() {}

	statePath := cfg.State.Path
	if statePath != ":memory:" && !filepath.IsAbs(statePath) {
		statePath = filepath.Join(root, statePath)
	}
	store, err := state.Open(statePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}
	opts = append(opts, pipeline.WithStore(store))
	cleanup = func() { _ = store.Close() }

	if cfg.Events.Enabled {
		pub, err := xref.NewPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			slog.Warn("Event publishing disabled", "error", err)
		} else {
			opts = append(opts, pipeline.WithEventSink(pub))
			prev := cleanup
			cleanup = func() { pub.Close(); prev() }
		}
	}

	return pipeline.New(cfg, root, opts...), cleanup, nil
}

func runBuild(cfg *config.Config) error {
	root := resolveRoot(cfg, "")
	o, cleanup, err := newOrchestrator(cfg, root)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := o.Run(contextWithSignals())
	if err != nil {
		return err
	}
	if !validate.Passed(result.Outcomes) {
		slog.Warn("Validation rules failing", "build_id", result.BuildID)
	}
	return nil
}

func runScan(cfg *config.Config) error {
	root := resolveRoot(cfg, "")

	ecosystems := cfg.Ecosystems
	if CLI.Scan.Ecosystem != "" {
		ecosystems = nil
		for _, eco := range cfg.Ecosystems {
			if eco.Name == CLI.Scan.Ecosystem {
				ecosystems = append(ecosystems, eco)
			}
		}
		if len(ecosystems) == 0 {
			ecosystems = []config.Ecosystem{{Name: CLI.Scan.Ecosystem, SourceDir: "src"}}
		}
	}
	if len(ecosystems) == 0 {
		return errors.New("no ecosystems configured")
	}

	for _, eco := range ecosystems {
		sourceDir := filepath.Join(root, filepath.FromSlash(eco.SourceDir))
		_, cov, err := apidocs.ScanEcosystem(eco.Name, sourceDir, eco.Exclude)
		if err != nil {
			return err
		}
		ratio := 1.0
		if cov.Total > 0 {
			ratio = float64(cov.Documented) / float64(cov.Total)
		}
		fmt.Printf("%-12s %4d/%-4d documented (%.0f%%)\n", eco.Name, cov.Documented, cov.Total, ratio*100)
	}
	return nil
}

func runToc(cfg *config.Config) error {
	root := resolveRoot(cfg, "")
	docsDir := filepath.Join(root, cfg.Docs.Dir)

	files, err := docs.NewDiscovery(docsDir).Discover()
	if err != nil {
		return err
	}

	builder := &toc.Builder{TocFile: cfg.Toc.File}
	block := builder.Build(files)
	tocPath := filepath.Join(docsDir, cfg.Toc.File)

	if CLI.Toc.Check {
		if toc.NeedsSync(tocPath, block) {
			fmt.Println("table of contents is out of date")
			os.Exit(1)
		}
		fmt.Println("table of contents is in sync")
		return nil
	}

	changed, err := toc.Sync(tocPath, block)
	if err != nil {
		return err
	}
	if changed {
		fmt.Printf("updated %s\n", cfg.Toc.File)
	} else {
		fmt.Println("table of contents already in sync")
	}
	return nil
}

func runXref(cfg *config.Config) error {
	root := resolveRoot(cfg, "")
	docsDir := filepath.Join(root, cfg.Docs.Dir)

	files, err := docs.NewDiscovery(docsDir).Discover()
	if err != nil {
		return err
	}

	r := &xref.Repairer{
		DocsDir:     docsDir,
		Write:       CLI.Xref.Write || cfg.Xref.Write,
		ScanHTML:    cfg.Xref.ScanHTML,
		IgnoreGlobs: cfg.Xref.IgnoreGlobs,
	}
	report, err := r.Run(files)
	if err != nil {
		return err
	}

	for _, f := range report.Repaired() {
		fmt.Printf("repaired  %s: %s -> %s\n", f.Source, f.Destination, f.NewDestination)
	}
	for _, f := range report.Broken() {
		fmt.Printf("broken    %s: %s\n", f.Source, f.Destination)
	}
	if len(report.Broken()) > 0 {
		os.Exit(1)
	}
	return nil
}

func runValidate(cfg *config.Config) error {
	root := resolveRoot(cfg, "")
	o, cleanup, err := newOrchestrator(cfg, root)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := o.Run(contextWithSignals())
	if err != nil {
		return err
	}

	failed := false
	for _, out := range result.Outcomes {
		status := "pass"
		if !out.Result.Passed {
			status = "FAIL"
			failed = true
		}
		fmt.Printf("%-16s %s", out.Rule, status)
		if out.Result.Reason != "" {
			fmt.Printf("  (%s)", out.Result.Reason)
		}
		fmt.Println()
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func runDaemon(cfg *config.Config) error {
	root := resolveRoot(cfg, "")

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Daemon.MetricsEnabled {
		recorder = metrics.NewPrometheusRecorder(nil)
	}

	// Daemon builds reuse a fixed staging dir instead of churning temp dirs.
	staging := pipeline.WithPersistentStaging(filepath.Join(os.TempDir(), "docforge"))
	o, cleanup, err := newOrchestrator(cfg, root, staging)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := daemon.New(cfg, root, o, recorder)
	if err != nil {
		return err
	}

	ctx := contextWithSignals()
	if err := d.Start(ctx); err != nil {
		return err
	}
	slog.Info("Daemon started", "root", root, "addr", cfg.Daemon.ListenAddr)

	<-ctx.Done()
	slog.Info("Shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.Stop(stopCtx)
}

func contextWithSignals() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
