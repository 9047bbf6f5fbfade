package apidocs

import (
	"regexp"
	"strings"
)

// rustScanner extracts public items from Rust sources.
type rustScanner struct{}

func (rustScanner) Ecosystem() string { return "rust" }

var (
	rustFnRe   = regexp.MustCompile(`^\s*pub\s+(?:async\s+)?fn\s+([a-z_]\w*)`)
	rustTypeRe = regexp.MustCompile(`^\s*pub\s+(?:struct|enum|trait)\s+([A-Za-z]\w*)`)
)

func (rustScanner) Scan(sourceDir string, exclude []string) ([]Entity, error) {
	return scanTree(sourceDir, exclude, ".rs", func(relPath string, lines []string) []Entity {
		var entities []Entity
		for i, line := range lines {
			var name string
			var kind EntityKind
			if m := rustFnRe.FindStringSubmatch(line); m != nil {
				name, kind = m[1], KindFunction
			} else if m := rustTypeRe.FindStringSubmatch(line); m != nil {
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
				Documented: rustDocumented(lines, i),
			})
		}
		return entities
	})
}

// rustDocumented accepts /// doc comments or #[doc] attributes above the
// item, skipping other attribute lines.
func rustDocumented(lines []string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		prev := strings.TrimSpace(lines[j])
		if strings.HasPrefix(prev, "///") || strings.HasPrefix(prev, "#[doc") {
			return true
		}
		if strings.HasPrefix(prev, "#[") {
			continue
		}
		return false
	}
	return false
}
