// Package manifest models the docs manifest: the declarative document
// enumerating documentation categories, build metadata, and the
// living-documentation policy consumed by external build jobs.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// CategoryKind enumerates the kinds of documentation categories.
type CategoryKind string

const (
	KindManual CategoryKind = "manual" // manually authored sections
	KindAPI    CategoryKind = "api"    // auto-generated per-ecosystem API references
	KindSource CategoryKind = "source" // source-structure sections
	KindAssets CategoryKind = "assets" // images and other static assets
)

// Category describes one documentation category.
type Category struct {
	Name      string       `yaml:"name" json:"name"`
	Path      string       `yaml:"path" json:"path"` // relative to the package root
	Title     string       `yaml:"title" json:"title"`
	Priority  int          `yaml:"priority" json:"priority"` // lower sorts first
	Kind      CategoryKind `yaml:"kind" json:"kind"`
	Ecosystem string       `yaml:"ecosystem,omitempty" json:"ecosystem,omitempty"` // set for KindAPI
}

// Coverage records documented vs total entities for one ecosystem.
type Coverage struct {
	Ecosystem  string `yaml:"ecosystem" json:"ecosystem"`
	Documented int    `yaml:"documented" json:"documented"`
	Total      int    `yaml:"total" json:"total"`
}

// Ratio returns documented/total, 1.0 for an empty ecosystem.
func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 1.0
	}
	return float64(c.Documented) / float64(c.Total)
}

// BuildInfo records the build that last refreshed the manifest.
type BuildInfo struct {
	BuilderVersion string `yaml:"builder_version" json:"builder_version"`
	BuildID        string `yaml:"build_id" json:"build_id"`
	Commit         string `yaml:"commit,omitempty" json:"commit,omitempty"`
}

// Metadata carries mutable bookkeeping fields refreshed on each build.
type Metadata struct {
	LastUpdated time.Time  `yaml:"last_updated" json:"last_updated"`
	Validated   []string   `yaml:"validated,omitempty" json:"validated,omitempty"` // passing rule names
	Failing     []string   `yaml:"failing,omitempty" json:"failing,omitempty"`     // failing rule names
	Build       BuildInfo  `yaml:"build" json:"build"`
	Coverage    []Coverage `yaml:"coverage,omitempty" json:"coverage,omitempty"`
}

// UpdatePolicy enumerates how the living-docs daemon reacts to doc changes.
type UpdatePolicy string

const (
	UpdateAuto   UpdatePolicy = "auto"   // resynchronize TOC and revalidate
	UpdateReview UpdatePolicy = "review" // revalidate only, humans apply fixes
	UpdateFrozen UpdatePolicy = "frozen" // report drift, change nothing
)

// Policy is the living-documentation policy block.
type Policy struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Cadence string       `yaml:"cadence,omitempty" json:"cadence,omitempty"` // Go duration string
	Update  UpdatePolicy `yaml:"update,omitempty" json:"update,omitempty"`
	Rules   []string     `yaml:"rules,omitempty" json:"rules,omitempty"` // named validation rules
}

// CadenceDuration parses the validation cadence, defaulting to 24h.
func (p Policy) CadenceDuration() time.Duration {
	d, err := time.ParseDuration(p.Cadence)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Manifest is the full docs manifest document.
type Manifest struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Metadata   Metadata   `yaml:"metadata" json:"metadata"`
	Policy     Policy     `yaml:"living_docs" json:"living_docs"`
}

// Default returns a manifest seeded with the standard doc_forge layout.
func Default() *Manifest {
	return &Manifest{
		Categories: []Category{
			{Name: "guides", Path: "docs/guides", Title: "Guides", Priority: 10, Kind: KindManual},
			{Name: "reference", Path: "docs/reference", Title: "Reference", Priority: 20, Kind: KindManual},
			{Name: "api-python", Path: "docs/api/python", Title: "Python API", Priority: 30, Kind: KindAPI, Ecosystem: "python"},
			{Name: "api-go", Path: "docs/api/go", Title: "Go API", Priority: 31, Kind: KindAPI, Ecosystem: "go"},
			{Name: "source", Path: "docs/source", Title: "Source Structure", Priority: 40, Kind: KindSource},
			{Name: "assets", Path: "docs/assets", Title: "Assets", Priority: 90, Kind: KindAssets},
		},
		Policy: Policy{
			Enabled: true,
			Cadence: "24h",
			Update:  UpdateReview,
			Rules:   []string{"manifest_fresh", "category_paths", "toc_synced", "coverage_floor", "no_broken_refs"},
		},
	}
}

// Load reads a manifest from a YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest atomically: marshal to a temp file in the target
// directory, then rename over the destination.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// SortedCategories returns categories by ascending priority, name as tiebreak.
func (m *Manifest) SortedCategories() []Category {
	out := make([]Category, len(m.Categories))
	copy(out, m.Categories)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Touch refreshes the mutable metadata after a build.
func (m *Manifest) Touch(info BuildInfo, coverage []Coverage, now time.Time) {
	m.Metadata.LastUpdated = now
	m.Metadata.Build = info
	if coverage != nil {
		m.Metadata.Coverage = coverage
	}
}

// SetValidation records the outcome of a validation run.
func (m *Manifest) SetValidation(passed, failed []string) {
	m.Metadata.Validated = passed
	m.Metadata.Failing = failed
}

// Hash computes a deterministic hash over the manifest's declarative content
// (categories and policy), excluding mutable metadata. Two manifests with the
// same hash describe the same documentation structure.
func (m *Manifest) Hash() (string, error) {
	hashInput := struct {
		Categories []Category `json:"categories"`
		Policy     Policy     `json:"policy"`
	}{
		Categories: m.SortedCategories(),
		Policy:     m.Policy,
	}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}

	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}
