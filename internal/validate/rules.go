package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ace1928/docforge/internal/toc"
)

// Rule names referenced by the manifest policy.
const (
	RuleManifestFresh = "manifest_fresh"
	RuleCategoryPaths = "category_paths"
	RuleTocSynced     = "toc_synced"
	RuleCoverageFloor = "coverage_floor"
	RuleNoBrokenRefs  = "no_broken_refs"
)

// ManifestFreshRule fails when the manifest has not been refreshed within
// the policy cadence.
type ManifestFreshRule struct{}

func (ManifestFreshRule) Name() string { return RuleManifestFresh }

func (ManifestFreshRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.Manifest == nil {
		return Failure("no manifest loaded")
	}
	last := vctx.Manifest.Metadata.LastUpdated
	if last.IsZero() {
		return Failure("manifest has never been updated")
	}
	cadence := vctx.Manifest.Policy.CadenceDuration()
	if age := vctx.Now.Sub(last); age > cadence {
		return Failure(fmt.Sprintf("manifest is stale: last updated %s ago, cadence %s", age.Round(0), cadence))
	}
	if !vctx.DocsChangedAt.IsZero() && last.Before(vctx.DocsChangedAt) {
		return Failure(fmt.Sprintf("manifest predates the last docs change at %s", vctx.DocsChangedAt.Format(time.RFC3339)))
	}
	return Success()
}

// CategoryPathsRule fails when a declared category path does not exist as a
// directory under the package root.
type CategoryPathsRule struct{}

func (CategoryPathsRule) Name() string { return RuleCategoryPaths }

func (CategoryPathsRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.Manifest == nil {
		return Failure("no manifest loaded")
	}
	for _, cat := range vctx.Manifest.Categories {
		path := filepath.Join(vctx.Root, filepath.FromSlash(cat.Path))
		info, err := os.Stat(path)
		if err != nil {
			return Failure(fmt.Sprintf("category %q path missing: %s", cat.Name, cat.Path))
		}
		if !info.IsDir() {
			return Failure(fmt.Sprintf("category %q path is not a directory: %s", cat.Name, cat.Path))
		}
	}
	return Success()
}

// TocSyncedRule fails when the table of contents on disk does not match the
// freshly built block.
type TocSyncedRule struct{}

func (TocSyncedRule) Name() string { return RuleTocSynced }

func (TocSyncedRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.TocBlock == "" {
		// TOC sync disabled or nothing discovered, nothing to compare.
		return Success()
	}
	if toc.NeedsSync(vctx.TocPath, vctx.TocBlock) {
		return Failure(fmt.Sprintf("table of contents out of date: %s", vctx.TocPath))
	}
	return Success()
}

// CoverageFloorRule fails when any ecosystem's documentation coverage falls
// below the configured floor.
type CoverageFloorRule struct{}

func (CoverageFloorRule) Name() string { return RuleCoverageFloor }

func (CoverageFloorRule) Validate(_ context.Context, vctx Context) Result {
	for _, cov := range vctx.Coverage {
		if ratio := cov.Ratio(); ratio < vctx.CoverageFloor {
			return Failure(fmt.Sprintf("%s coverage %.2f below floor %.2f (%d of %d documented)",
				cov.Ecosystem, ratio, vctx.CoverageFloor, cov.Documented, cov.Total))
		}
	}
	return Success()
}

// NoBrokenRefsRule fails when the last cross-reference scan left broken links.
type NoBrokenRefsRule struct{}

func (NoBrokenRefsRule) Name() string { return RuleNoBrokenRefs }

func (NoBrokenRefsRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.XrefReport == nil {
		// No scan ran, nothing to assert.
		return Success()
	}
	broken := vctx.XrefReport.Broken()
	if len(broken) > 0 {
		first := broken[0]
		return Failure(fmt.Sprintf("%d broken cross-references, first: %s -> %s",
			len(broken), first.Source, first.Destination))
	}
	return Success()
}

// StandardRules returns all built-in rules keyed by name.
func StandardRules() map[string]Rule {
	rules := []Rule{
		ManifestFreshRule{},
		CategoryPathsRule{},
		TocSyncedRule{},
		CoverageFloorRule{},
		NoBrokenRefsRule{},
	}
	out := make(map[string]Rule, len(rules))
	for _, r := range rules {
		out[r.Name()] = r
	}
	return out
}
