// Package docs discovers documentation files and assets under a package
// root's docs tree.
package docs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ace1928/docforge/internal/logfields"
)

// Sentinel errors for discovery failures tests and callers can classify on.
var (
	ErrDocsDirMissing      = errors.New("docs directory not found")
	ErrDocsWalkFailed      = errors.New("docs directory walk failed")
	ErrFileReadFailed      = errors.New("doc file read failed")
	ErrInvalidRelativePath = errors.New("invalid relative path")
)

// DocFile represents a discovered documentation file or asset.
type DocFile struct {
	Path         string // absolute path to the file
	RelativePath string // path relative to the docs directory
	Section      string // documentation section (directory), "" at root
	Name         string // file name without extension
	Extension    string // file extension including the dot
	Content      []byte // file content, loaded on demand
	IsAsset      bool   // true for images and other non-markdown files
}

// Discovery walks a docs tree and records what it finds.
type Discovery struct {
	docsDir  string
	docFiles []DocFile
}

// NewDiscovery creates a discovery instance rooted at docsDir.
func NewDiscovery(docsDir string) *Discovery {
	return &Discovery{docsDir: docsDir, docFiles: make([]DocFile, 0)}
}

// Discover finds all documentation files and assets under the docs tree.
// Results are sorted by relative path so downstream output is deterministic.
func (d *Discovery) Discover() ([]DocFile, error) {
	d.docFiles = d.docFiles[:0]

	if info, err := os.Stat(d.docsDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDocsDirMissing, d.docsDir)
	}

	err := filepath.Walk(d.docsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Hidden directories (.git, .cache) are not documentation.
			if path != d.docsDir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		isMarkdown := isMarkdownFile(path)
		isAssetFile := isAsset(path)
		if !isMarkdown && !isAssetFile {
			return nil
		}

		relPath, err := filepath.Rel(d.docsDir, path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRelativePath, err)
		}

		section := filepath.Dir(relPath)
		if section == "." {
			section = ""
		}

		d.docFiles = append(d.docFiles, DocFile{
			Path:         path,
			RelativePath: relPath,
			Section:      section,
			Name:         strings.TrimSuffix(info.Name(), filepath.Ext(info.Name())),
			Extension:    filepath.Ext(info.Name()),
			IsAsset:      isAssetFile,
		})

		slog.Debug("Discovered file", logfields.File(relPath), logfields.Section(section))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDocsWalkFailed, d.docsDir, err)
	}

	sort.Slice(d.docFiles, func(i, j int) bool {
		return d.docFiles[i].RelativePath < d.docFiles[j].RelativePath
	})

	slog.Info("Documentation discovered", logfields.Path(d.docsDir), slog.Int("files", len(d.docFiles)))
	return d.docFiles, nil
}

// LoadContent loads the content of a documentation file.
func (df *DocFile) LoadContent() error {
	if df.Content != nil {
		return nil // already loaded
	}
	content, err := os.ReadFile(df.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileReadFailed, df.Path, err)
	}
	df.Content = content
	return nil
}

// DocFiles returns all discovered documentation files.
func (d *Discovery) DocFiles() []DocFile {
	return d.docFiles
}

// BySection returns documentation files grouped by section.
func (d *Discovery) BySection() map[string][]DocFile {
	result := make(map[string][]DocFile)
	for _, file := range d.docFiles {
		result[file.Section] = append(result[file.Section], file)
	}
	return result
}

// Markdown returns only the markdown files, assets excluded.
func (d *Discovery) Markdown() []DocFile {
	out := make([]DocFile, 0, len(d.docFiles))
	for _, f := range d.docFiles {
		if !f.IsAsset {
			out = append(out, f)
		}
	}
	return out
}

// isMarkdownFile checks if a file is a markdown file.
func isMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown" || ext == ".mkd"
}

// isAsset checks if a file is an asset (image, etc.).
func isAsset(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	assetExtensions := []string{
		// Images
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".ico",
		// Documents
		".pdf", ".html", ".htm",
		// Video
		".mp4", ".webm", ".ogv",
		// Other
		".csv", ".json", ".yaml", ".yml", ".xml",
	}
	for _, assetExt := range assetExtensions {
		if ext == assetExt {
			return true
		}
	}
	return false
}
