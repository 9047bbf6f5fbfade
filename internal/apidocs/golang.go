package apidocs

import (
	"regexp"
	"strings"
)

// goScanner extracts exported declarations from Go sources.
type goScanner struct{}

func (goScanner) Ecosystem() string { return "go" }

var (
	goFuncRe = regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?([A-Z]\w*)\s*\(`)
	goTypeRe = regexp.MustCompile(`^type\s+([A-Z]\w*)\s+`)
)

func (goScanner) Scan(sourceDir string, exclude []string) ([]Entity, error) {
	return scanTree(sourceDir, exclude, ".go", func(relPath string, lines []string) []Entity {
		if strings.HasSuffix(relPath, "_test.go") {
			return nil
		}
		var entities []Entity
		for i, line := range lines {
			var name string
			var kind EntityKind
			if m := goFuncRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindFunction
			} else if m := goTypeRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindType
			} else {
				continue
			}
			entities = append(entities, Entity{
				Name:       name,
				Kind:       kind,
				Module:     modulePath(relPath),
				File:       relPath,
				Line:       i + 1,
				Documented: precededByComment(lines, i, "//"),
			})
		}
		return entities
	})
}

// precededByComment reports whether a declaration at index i has an adjacent
// comment line with the given marker directly above it.
func precededByComment(lines []string, i int, marker string) bool {
	if i == 0 {
		return false
	}
	prev := strings.TrimSpace(lines[i-1])
	return strings.HasPrefix(prev, marker)
}
