package apidocs

import (
	"regexp"
	"strings"
)

// jsScanner extracts functions, classes and CommonJS exports from
// JavaScript sources.
type jsScanner struct{}

func (jsScanner) Ecosystem() string { return "javascript" }

var (
	jsFuncRe   = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z]\w*)\s*\(`)
	jsClassRe  = regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z]\w*)`)
	jsExportRe = regexp.MustCompile(`^\s*(?:module\.)?exports\.([A-Za-z]\w*)\s*=`)
)

func (jsScanner) Scan(sourceDir string, exclude []string) ([]Entity, error) {
	return scanTree(sourceDir, exclude, ".js", func(relPath string, lines []string) []Entity {
		var entities []Entity
		for i, line := range lines {
			var name string
			var kind EntityKind
			if m := jsFuncRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindFunction
			} else if m := jsClassRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindType
			} else if m := jsExportRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindFunction
			} else {
				continue
			}
			entities = append(entities, Entity{
				Name:       name,
				Kind:       kind,
				Module:     modulePath(relPath),
				File:       relPath,
				Line:       i + 1,
				Documented: jsDocumented(lines, i),
			})
		}
		return entities
	})
}

// jsDocumented accepts a closing JSDoc block or a plain line comment
// directly above the declaration.
func jsDocumented(lines []string, i int) bool {
	if i == 0 {
		return false
	}
	prev := strings.TrimSpace(lines[i-1])
	return strings.HasSuffix(prev, "*/") || strings.HasPrefix(prev, "//")
}
