package apidocs

import (
	"regexp"
	"strings"
)

// pythonScanner extracts def/class structures from Python sources. Names
// with a leading underscore are private by convention and skipped.
type pythonScanner struct{}

func (pythonScanner) Ecosystem() string { return "python" }

var (
	pyDefRe   = regexp.MustCompile(`^\s*def\s+([A-Za-z]\w*)\s*\(`)
	pyClassRe = regexp.MustCompile(`^\s*class\s+([A-Za-z]\w*)\s*[(:]`)
)

func (pythonScanner) Scan(sourceDir string, exclude []string) ([]Entity, error) {
	return scanTree(sourceDir, exclude, ".py", func(relPath string, lines []string) []Entity {
		var entities []Entity
		for i, line := range lines {
			var name string
			var kind EntityKind
			if m := pyDefRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindFunction
			} else if m := pyClassRe.FindStringSubmatch(line); m != nil {
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
				Documented: followedByDocstring(lines, i),
			})
		}
		return entities
	})
}

// followedByDocstring reports whether the block body opened by the def/class
// at index i starts with a docstring. Multi-line signatures are tolerated by
// first locating the line that closes the signature with ":".
func followedByDocstring(lines []string, i int) bool {
	body := -1
	for j := i; j < len(lines) && j <= i+16; j++ {
		if strings.HasSuffix(strings.TrimRight(lines[j], " \t"), ":") {
			body = j + 1
			break
		}
	}
	if body < 0 {
		return false
	}
	for j := body; j < len(lines) && j <= body+4; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''")
	}
	return false
}
