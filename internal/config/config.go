// Package config loads and validates docforge configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Root       string           `yaml:"root,omitempty"` // package root override; located automatically when empty
	Package    string           `yaml:"package,omitempty"`
	Docs       DocsConfig       `yaml:"docs"`
	Ecosystems []Ecosystem      `yaml:"ecosystems,omitempty"`
	Toc        TocConfig        `yaml:"toc"`
	Xref       XrefConfig       `yaml:"xref"`
	Events     EventsConfig     `yaml:"events"`
	State      StateConfig      `yaml:"state"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Logging    LoggingConfig    `yaml:"logging"`
	Validation ValidationConfig `yaml:"validation"`
}

// DocsConfig describes the documentation tree of the package root.
type DocsConfig struct {
	Dir          string `yaml:"dir"`           // relative to root
	ManifestPath string `yaml:"manifest_path"` // relative to root
	OutputDir    string `yaml:"output_dir"`    // generated API reference target, relative to root
}

// Ecosystem describes one per-language source tree for API doc aggregation.
type Ecosystem struct {
	Name      string   `yaml:"name"` // go, python, javascript, rust
	SourceDir string   `yaml:"source_dir"`
	Exclude   []string `yaml:"exclude,omitempty"`
}

// TocConfig controls table-of-contents synchronization.
type TocConfig struct {
	File    string `yaml:"file"` // relative to docs dir
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// XrefConfig controls cross-reference scanning and repair.
type XrefConfig struct {
	Write       bool     `yaml:"write"` // rewrite repairable links in place
	ScanHTML    bool     `yaml:"scan_html"`
	IgnoreGlobs []string `yaml:"ignore,omitempty"`
}

// EventsConfig configures broken-reference event publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// StateConfig configures the build/validation state store.
type StateConfig struct {
	Path string `yaml:"path"` // sqlite file, ":memory:" for ephemeral
}

// DaemonConfig configures living-docs daemon mode.
type DaemonConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	WatchDebounce  string `yaml:"watch_debounce"` // Go duration string, e.g. "2s"
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Debounce parses the watch debounce interval, falling back to 2s on any
// unparseable value.
func (d DaemonConfig) Debounce() time.Duration {
	dur, err := time.ParseDuration(d.WatchDebounce)
	if err != nil || dur <= 0 {
		return 2 * time.Second
	}
	return dur
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // text or json
}

// SlogLevel maps the configured level name onto a slog level. Unknown names
// fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the configured slog handler writing to w at the given
// level.
func (l LoggingConfig) NewHandler(w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ValidationConfig carries thresholds consumed by named validation rules.
type ValidationConfig struct {
	CoverageFloor float64 `yaml:"coverage_floor,omitempty"` // 0..1
}

// Load loads configuration from the specified file. A missing file is
// reported as an error wrapping fs.ErrNotExist so callers can fall back to
// defaults without swallowing read or parse failures.
func Load(configPath string) (*Config, error) {
	// Load .env files first so ${VAR} expansion below sees them.
	loadEnvFiles()

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("configuration file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Package == "" {
		c.Package = "doc_forge"
	}
	if c.Docs.Dir == "" {
		c.Docs.Dir = "docs"
	}
	if c.Docs.ManifestPath == "" {
		c.Docs.ManifestPath = "docs_manifest.yaml"
	}
	if c.Docs.OutputDir == "" {
		c.Docs.OutputDir = c.Docs.Dir + "/api"
	}
	if c.Toc.File == "" {
		c.Toc.File = "SUMMARY.md"
	}
	if c.Toc.Enabled == nil {
		enabled := true
		c.Toc.Enabled = &enabled
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "docforge.xref.broken"
	}
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.State.Path == "" {
		c.State.Path = ".docforge/state.db"
	}
	if c.Daemon.ListenAddr == "" {
		c.Daemon.ListenAddr = ":9180"
	}
	if c.Daemon.WatchDebounce == "" {
		c.Daemon.WatchDebounce = "2s"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Validation.CoverageFloor <= 0 {
		c.Validation.CoverageFloor = 0.5
	}
	for i := range c.Ecosystems {
		if c.Ecosystems[i].SourceDir == "" {
			c.Ecosystems[i].SourceDir = "src"
		}
	}
}

// Validate checks configuration invariants not expressible as defaults.
func (c *Config) Validate() error {
	seen := map[string]struct{}{}
	for _, eco := range c.Ecosystems {
		if eco.Name == "" {
			return fmt.Errorf("ecosystem with empty name")
		}
		if _, dup := seen[eco.Name]; dup {
			return fmt.Errorf("duplicate ecosystem %q", eco.Name)
		}
		seen[eco.Name] = struct{}{}
	}
	if c.Validation.CoverageFloor < 0 || c.Validation.CoverageFloor > 1 {
		return fmt.Errorf("coverage_floor must be within [0,1], got %v", c.Validation.CoverageFloor)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging format must be text or json, got %q", c.Logging.Format)
	}
	if _, err := time.ParseDuration(c.Daemon.WatchDebounce); err != nil {
		return fmt.Errorf("invalid daemon watch_debounce: %w", err)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# docforge configuration
package: doc_forge

docs:
  dir: docs
  manifest_path: docs_manifest.yaml
  output_dir: docs/api

ecosystems:
  - name: python
    source_dir: src
  - name: go
    source_dir: .

toc:
  file: SUMMARY.md

xref:
  write: false
  scan_html: true

events:
  enabled: false
  nats_url: ${DOCFORGE_NATS_URL}
  subject: docforge.xref.broken

state:
  path: .docforge/state.db

daemon:
  listen_addr: ":9180"
  watch_debounce: 2s
  metrics_enabled: true

validation:
  coverage_floor: 0.5

logging:
  level: info
  format: text
`
	if err := os.WriteFile(configPath, []byte(example), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
