// Package apidocs aggregates API reference documentation across programming
// ecosystems. Scanners perform lightweight line-level extraction of code
// entities; the aggregator turns them into markdown reference pages and
// coverage metrics.
package apidocs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ace1928/docforge/internal/logfields"
)

// EntityKind classifies a discovered code structure.
type EntityKind string

const (
	KindFunction EntityKind = "function"
	KindType     EntityKind = "type" // classes, structs, traits
	KindModule   EntityKind = "module"
)

// Entity is one discovered code structure.
type Entity struct {
	Name       string
	Kind       EntityKind
	Module     string // dotted module path relative to the source root
	File       string // path relative to the source root
	Line       int
	Documented bool // entity carries a doc comment or docstring
}

// Scanner extracts entities for one ecosystem.
type Scanner interface {
	Ecosystem() string
	// Scan walks sourceDir and returns discovered entities. Paths matching
	// any exclude glob (against the relative path) are skipped.
	Scan(sourceDir string, exclude []string) ([]Entity, error)
}

// ScannerFor returns the scanner for a named ecosystem.
func ScannerFor(name string) (Scanner, error) {
	switch name {
	case "go":
		return goScanner{}, nil
	case "python":
		return pythonScanner{}, nil
	case "javascript":
		return jsScanner{}, nil
	case "rust":
		return rustScanner{}, nil
	default:
		return nil, fmt.Errorf("unsupported ecosystem %q", name)
	}
}

// Ecosystems lists the supported ecosystem names.
func Ecosystems() []string {
	return []string{"go", "python", "javascript", "rust"}
}

// scanTree walks sourceDir for files with the given extension and invokes
// scanFile per file. Shared by all line-level scanners.
func scanTree(sourceDir string, exclude []string, ext string, scanFile func(relPath string, lines []string) []Entity) ([]Entity, error) {
	var entities []Entity
	err := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != sourceDir && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" || name == "target" || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(info.Name(), ext) {
			return nil
		}
		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if excluded(relPath, exclude) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read source file %s: %w", path, err)
		}
		entities = append(entities, scanFile(relPath, strings.Split(string(data), "\n"))...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", sourceDir, err)
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].File != entities[j].File {
			return entities[i].File < entities[j].File
		}
		return entities[i].Line < entities[j].Line
	})
	return entities, nil
}

func excluded(relPath string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(g, filepath.Base(relPath)); ok {
			return true
		}
	}
	return false
}

// modulePath converts a relative file path to a dotted module path, dropping
// the extension: guides/util/strings.py -> guides.util.strings.
func modulePath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	parts := strings.Split(filepath.ToSlash(trimmed), "/")
	return strings.Join(parts, ".")
}

// Coverage summarizes documented vs total entities for one ecosystem.
type Coverage struct {
	Ecosystem  string
	Documented int
	Total      int
}

// ComputeCoverage tallies documentation coverage over entities.
func ComputeCoverage(ecosystem string, entities []Entity) Coverage {
	cov := Coverage{Ecosystem: ecosystem}
	for _, e := range entities {
		cov.Total++
		if e.Documented {
			cov.Documented++
		}
	}
	return cov
}

// ScanEcosystem runs the scanner for one named ecosystem rooted at sourceDir.
func ScanEcosystem(name, sourceDir string, exclude []string) ([]Entity, Coverage, error) {
	scanner, err := ScannerFor(name)
	if err != nil {
		return nil, Coverage{}, err
	}
	entities, err := scanner.Scan(sourceDir, exclude)
	if err != nil {
		return nil, Coverage{}, err
	}
	cov := ComputeCoverage(name, entities)
	slog.Info("Ecosystem scanned",
		logfields.Ecosystem(name),
		slog.Int("entities", cov.Total),
		slog.Int("documented", cov.Documented))
	return entities, cov, nil
}
