package xref

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Ace1928/docforge/internal/docs"
	"github.com/Ace1928/docforge/internal/logfields"
)

// Status classifies a scanned reference.
type Status string

const (
	StatusOK       Status = "ok"
	StatusRepaired Status = "repaired"
	StatusBroken   Status = "broken"
	StatusSkipped  Status = "skipped" // external links and bare anchors
)

// Finding is the scan result for a single reference.
type Finding struct {
	Source         string // file path relative to the docs dir
	Section        string
	Destination    string
	NewDestination string // set when Status is StatusRepaired
	Kind           RefKind
	Status         Status
}

// Report aggregates findings across a scan.
type Report struct {
	Findings []Finding
	Scanned  int // files scanned
}

// Broken returns only the findings that could not be repaired.
func (r *Report) Broken() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Status == StatusBroken {
			out = append(out, f)
		}
	}
	return out
}

// Repaired returns only the findings that were (or would be) rewritten.
func (r *Report) Repaired() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Status == StatusRepaired {
			out = append(out, f)
		}
	}
	return out
}

// Repairer scans discovered docs for relative references whose targets do
// not resolve, and heals the ones that moved elsewhere in the tree.
type Repairer struct {
	DocsDir     string
	Write       bool // rewrite repairable links in place
	ScanHTML    bool
	IgnoreGlobs []string // relative paths matching any glob are not scanned
}

// Run scans all markdown files (and HTML assets when enabled) under the
// docs tree. Files matching an ignore glob stay in the link-target index so
// references into them still resolve; they just are not scanned themselves.
func (r *Repairer) Run(files []docs.DocFile) (*Report, error) {
	index := buildTargetIndex(files)
	report := &Report{}

	for i := range files {
		f := &files[i]
		if r.ignored(f.RelativePath) {
			continue
		}
		switch {
		case !f.IsAsset:
			if err := r.scanMarkdown(f, index, report); err != nil {
				return nil, err
			}
		case r.ScanHTML && isHTMLFile(f.Extension):
			if err := r.scanHTML(f, index, report); err != nil {
				return nil, err
			}
		}
	}

	slog.Info("Cross-reference scan complete",
		slog.Int("files", report.Scanned),
		slog.Int("repaired", len(report.Repaired())),
		slog.Int("broken", len(report.Broken())))
	return report, nil
}

// ignored matches the slash-form relative path, and its basename, against
// the configured ignore globs.
func (r *Repairer) ignored(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	for _, glob := range r.IgnoreGlobs {
		if ok, err := path.Match(glob, rel); err == nil && ok {
			return true
		}
		if ok, err := path.Match(glob, path.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}

func (r *Repairer) scanMarkdown(f *docs.DocFile, index map[string][]string, report *Report) error {
	if err := f.LoadContent(); err != nil {
		return err
	}
	report.Scanned++

	content := f.Content
	var rewrites map[string]string

	for _, ref := range ExtractMarkdownRefs(content) {
		finding := r.classify(f, ref, index)
		report.Findings = append(report.Findings, finding)
		if finding.Status == StatusRepaired {
			if rewrites == nil {
				rewrites = make(map[string]string)
			}
			rewrites[finding.Destination] = finding.NewDestination
		}
	}

	if r.Write && len(rewrites) > 0 {
		updated := rewriteDestinations(content, rewrites)
		if !bytes.Equal(updated, content) {
			if err := os.WriteFile(f.Path, updated, 0o600); err != nil {
				return fmt.Errorf("rewrite %s: %w", f.Path, err)
			}
			f.Content = updated
			slog.Info("Repaired cross-references", logfields.File(f.RelativePath), slog.Int("links", len(rewrites)))
		}
	}
	return nil
}

func (r *Repairer) scanHTML(f *docs.DocFile, index map[string][]string, report *Report) error {
	if err := f.LoadContent(); err != nil {
		return err
	}
	report.Scanned++

	refs, err := ExtractHTMLRefs(bytes.NewReader(f.Content))
	if err != nil {
		return fmt.Errorf("scan %s: %w", f.RelativePath, err)
	}
	// HTML assets are generated artifacts; report but never rewrite.
	for _, ref := range refs {
		finding := r.classify(f, ref, index)
		if finding.Status == StatusRepaired {
			finding.Status = StatusBroken
			finding.NewDestination = ""
		}
		report.Findings = append(report.Findings, finding)
	}
	return nil
}

// classify resolves one reference against the docs tree.
func (r *Repairer) classify(f *docs.DocFile, ref Ref, index map[string][]string) Finding {
	finding := Finding{
		Source:      f.RelativePath,
		Section:     f.Section,
		Destination: ref.Destination,
		Kind:        ref.Kind,
	}

	if IsExternal(ref.Destination) || IsAnchor(ref.Destination) || ref.Kind == KindAuto {
		finding.Status = StatusSkipped
		return finding
	}

	target := stripFragment(ref.Destination)
	if target == "" {
		finding.Status = StatusSkipped
		return finding
	}

	sourceDir := filepath.Dir(filepath.Join(r.DocsDir, f.RelativePath))
	resolved := filepath.Join(sourceDir, filepath.FromSlash(target))
	if _, err := os.Stat(resolved); err == nil {
		finding.Status = StatusOK
		return finding
	}

	// The target does not resolve; look for a unique file of the same name
	// elsewhere in the tree.
	if repaired, ok := r.heal(sourceDir, target, index); ok {
		finding.Status = StatusRepaired
		finding.NewDestination = repaired
		return finding
	}

	finding.Status = StatusBroken
	return finding
}

// heal finds a replacement destination for a missing target: a unique
// basename match in the tree, case-insensitively.
func (r *Repairer) heal(sourceDir, target string, index map[string][]string) (string, bool) {
	base := strings.ToLower(filepath.Base(filepath.FromSlash(target)))
	candidates := index[base]
	if len(candidates) != 1 {
		// Zero candidates means truly gone; several means ambiguous. Either
		// way rewriting would be a guess, so leave it broken.
		return "", false
	}

	abs := filepath.Join(r.DocsDir, candidates[0])
	rel, err := filepath.Rel(sourceDir, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// buildTargetIndex maps lowercased basenames to the relative paths bearing them.
func buildTargetIndex(files []docs.DocFile) map[string][]string {
	index := make(map[string][]string)
	for _, f := range files {
		key := strings.ToLower(filepath.Base(f.RelativePath))
		index[key] = append(index[key], f.RelativePath)
	}
	return index
}

// rewriteDestinations replaces link destinations in markdown content,
// touching only the destination positions of inline links, images, and
// reference definitions.
func rewriteDestinations(content []byte, rewrites map[string]string) []byte {
	out := content
	for old, repaired := range rewrites {
		out = bytes.ReplaceAll(out, []byte("("+old+")"), []byte("("+repaired+")"))
		out = bytes.ReplaceAll(out, []byte("]: "+old), []byte("]: "+repaired))
	}
	return out
}

func stripFragment(dest string) string {
	if u, err := url.Parse(dest); err == nil {
		return u.Path
	}
	if idx := strings.IndexByte(dest, '#'); idx >= 0 {
		return dest[:idx]
	}
	return dest
}

func isHTMLFile(ext string) bool {
	lower := strings.ToLower(ext)
	return lower == ".html" || lower == ".htm"
}
