// Package daemon runs docforge in living-docs mode: a cadence scheduler
// revalidates the docs tree periodically, a filesystem watcher rebuilds on
// change, and an HTTP endpoint exposes health and metrics.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Ace1928/docforge/internal/config"
	"github.com/Ace1928/docforge/internal/logfields"
	"github.com/Ace1928/docforge/internal/manifest"
	"github.com/Ace1928/docforge/internal/metrics"
	"github.com/Ace1928/docforge/internal/pipeline"
)

// Runner executes one pipeline run. Satisfied by pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Daemon supervises scheduled and change-triggered documentation builds.
type Daemon struct {
	cfg      *config.Config
	root     string
	runner   Runner
	recorder metrics.Recorder

	scheduler gocron.Scheduler
	watcher   *DocsWatcher
	server    *http.Server

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// New constructs a daemon around an existing pipeline runner.
func New(cfg *config.Config, root string, runner Runner, recorder metrics.Recorder) (*Daemon, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Daemon{
		cfg:       cfg,
		root:      root,
		runner:    runner,
		recorder:  recorder,
		scheduler: scheduler,
	}, nil
}

// Start brings up the scheduler, the docs watcher, and the HTTP server.
// It returns once everything is running; Stop shuts the pieces down.
func (d *Daemon) Start(ctx context.Context) error {
	policy := d.policy()
	if !policy.Enabled {
		return errors.New("living-docs policy is disabled in the manifest")
	}

	cadence := policy.CadenceDuration()
	if _, err := d.scheduler.NewJob(
		gocron.DurationJob(cadence),
		gocron.NewTask(d.runOnce, ctx, "cadence"),
		gocron.WithName("cadence-validation"),
	); err != nil {
		return fmt.Errorf("failed to schedule cadence job: %w", err)
	}
	d.scheduler.Start()
	slog.Info("Cadence validation scheduled", slog.Duration("cadence", cadence))

	if policy.Update != manifest.UpdateFrozen {
		watcher, err := NewDocsWatcher(
			filepath.Join(d.root, d.cfg.Docs.Dir),
			d.cfg.Daemon.Debounce(),
			func() { d.onDocsChange(ctx, policy) },
		)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		d.watcher = watcher
	} else {
		slog.Info("Update policy is frozen, docs watcher disabled")
	}

	return d.startHTTP()
}

// Stop shuts everything down in reverse order of startup.
func (d *Daemon) Stop(ctx context.Context) error {
	var errs []error
	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("watcher stop: %w", err))
		}
	}
	if err := d.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// policy reads the living-docs policy from the manifest, falling back to the
// default policy when no manifest exists yet.
func (d *Daemon) policy() manifest.Policy {
	m, err := manifest.Load(filepath.Join(d.root, d.cfg.Docs.ManifestPath))
	if err != nil {
		return manifest.Default().Policy
	}
	return m.Policy
}

func (d *Daemon) onDocsChange(ctx context.Context, policy manifest.Policy) {
	d.recorder.IncWatchEvent()
	switch policy.Update {
	case manifest.UpdateFrozen:
		slog.Info("Docs drift detected, policy is frozen")
	default:
		// Both auto and review run the pipeline; review relies on the
		// configured xref write mode staying off.
		d.runOnce(ctx, "watch")
	}
}

// runOnce serializes pipeline runs so a cadence tick and a watch event
// cannot build concurrently.
func (d *Daemon) runOnce(ctx context.Context, trigger string) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		slog.Debug("Run already in progress, skipping", slog.String("trigger", trigger))
		return
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.lastRun = time.Now()
		d.mu.Unlock()
	}()

	slog.Info("Triggered pipeline run", slog.String("trigger", trigger))
	if _, err := d.runner.Run(ctx); err != nil {
		slog.Error("Pipeline run failed",
			slog.String("trigger", trigger),
			logfields.Error(err))
	}
}

func (d *Daemon) startHTTP() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealthz)
	if d.cfg.Daemon.MetricsEnabled {
		if pr, ok := d.recorder.(*metrics.PrometheusRecorder); ok {
			mux.Handle("/metrics", pr.Handler())
		}
	}

	d.server = &http.Server{
		Addr:              d.cfg.Daemon.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Daemon HTTP server listening", slog.String("addr", d.cfg.Daemon.ListenAddr))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", logfields.Error(err))
		}
	}()
	return nil
}

func (d *Daemon) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	last := d.lastRun
	d.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if last.IsZero() {
		fmt.Fprintln(w, "ok (no runs yet)")
		return
	}
	fmt.Fprintf(w, "ok (last run %s ago)\n", time.Since(last).Round(time.Second))
}
