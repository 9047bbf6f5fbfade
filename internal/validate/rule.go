// Package validate implements the named policy rules evaluated against a
// docs tree after each build and on the daemon's cadence.
package validate

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ace1928/docforge/internal/manifest"
	"github.com/Ace1928/docforge/internal/xref"
)

// Context contains all the data needed by validation rules.
type Context struct {
	Root          string // package root the manifest paths are relative to
	Manifest      *manifest.Manifest
	Coverage      []manifest.Coverage
	TocPath       string
	TocBlock      string // freshly built TOC block, empty when TOC sync is disabled
	XrefReport    *xref.Report
	CoverageFloor float64
	DocsChangedAt time.Time // most recent commit touching the docs tree, zero outside git
	Now           time.Time
	Logger        *slog.Logger
}

// Result indicates whether validation passed and provides context.
type Result struct {
	Passed bool
	Reason string // human-readable reason for failure
}

// Success returns a successful validation result.
func Success() Result {
	return Result{Passed: true}
}

// Failure returns a failed validation result with a reason.
func Failure(reason string) Result {
	return Result{Passed: false, Reason: reason}
}

// Rule represents a single named validation rule.
type Rule interface {
	// Name returns the identifier referenced by the manifest policy.
	Name() string

	// Validate checks the rule against the current docs tree.
	Validate(ctx context.Context, vctx Context) Result
}
