// Package toc keeps the documentation table of contents synchronized with
// the discovered docs tree. Generated content lives between marker comments
// so manually authored prose around it survives regeneration.
package toc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ace1928/docforge/internal/docs"
	"github.com/Ace1928/docforge/internal/logfields"
)

const (
	markerStart = "<!-- docforge:toc:start -->"
	markerEnd   = "<!-- docforge:toc:end -->"
)

// Builder generates the table-of-contents block.
type Builder struct {
	// SectionWeight orders sections; lower sorts first. Unknown sections get
	// weight 1000 so declared categories lead. Nil means name order.
	SectionWeight func(section string) int

	// TocFile is the TOC file's path relative to the docs dir. It is
	// excluded from the block so the TOC never lists itself.
	TocFile string
}

// Build renders the generated TOC block for the given markdown files.
// Output is deterministic for a given input set.
func (b *Builder) Build(files []docs.DocFile) string {
	bySection := make(map[string][]docs.DocFile)
	for _, f := range files {
		if f.IsAsset {
			continue
		}
		if b.TocFile != "" && filepath.ToSlash(f.RelativePath) == filepath.ToSlash(b.TocFile) {
			continue
		}
		bySection[f.Section] = append(bySection[f.Section], f)
	}

	sections := make([]string, 0, len(bySection))
	for s := range bySection {
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool {
		wi, wj := b.weight(sections[i]), b.weight(sections[j])
		if wi != wj {
			return wi < wj
		}
		return sections[i] < sections[j]
	})

	var sb strings.Builder
	sb.WriteString(markerStart + "\n")
	sb.WriteString("# Table of Contents\n")
	for _, section := range sections {
		entries := bySection[section]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].RelativePath < entries[j].RelativePath
		})

		if section != "" {
			fmt.Fprintf(&sb, "\n## %s\n", SectionTitle(filepath.Base(section)))
		} else {
			sb.WriteString("\n")
		}
		for i := range entries {
			title := Title(&entries[i])
			fmt.Fprintf(&sb, "- [%s](%s)\n", title, filepath.ToSlash(entries[i].RelativePath))
		}
	}
	sb.WriteString(markerEnd + "\n")
	return sb.String()
}

func (b *Builder) weight(section string) int {
	if section == "" {
		return -1 // root pages always lead
	}
	if b.SectionWeight == nil {
		return 1000
	}
	return b.SectionWeight(section)
}

// Merge splices the generated block into existing file content, replacing a
// previous block between markers or appending one when absent.
func Merge(existing, block string) string {
	start := strings.Index(existing, markerStart)
	end := strings.Index(existing, markerEnd)
	if start >= 0 && end > start {
		rest := strings.TrimPrefix(existing[end+len(markerEnd):], "\n")
		return existing[:start] + block + rest
	}
	if existing == "" {
		return block
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + block
}

// Sync writes the merged TOC to tocPath and reports whether anything
// changed. A missing file is created.
func Sync(tocPath, block string) (bool, error) {
	existing := ""
	data, err := os.ReadFile(tocPath)
	switch {
	case err == nil:
		existing = string(data)
	case !os.IsNotExist(err):
		return false, fmt.Errorf("read toc file: %w", err)
	}

	merged := Merge(existing, block)
	if merged == existing {
		slog.Debug("TOC already in sync", logfields.Path(tocPath))
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(tocPath), 0o750); err != nil {
		return false, fmt.Errorf("create toc directory: %w", err)
	}
	if err := os.WriteFile(tocPath, []byte(merged), 0o600); err != nil {
		return false, fmt.Errorf("write toc file: %w", err)
	}
	slog.Info("TOC synchronized", logfields.Path(tocPath))
	return true, nil
}

// NeedsSync reports whether Sync would change the file, without writing.
func NeedsSync(tocPath, block string) bool {
	data, err := os.ReadFile(tocPath)
	if err != nil {
		return true
	}
	return Merge(string(data), block) != string(data)
}
