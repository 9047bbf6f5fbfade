package apidocs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RenderPages writes one markdown API reference page per module into outDir
// and an _index page listing the modules. It returns the relative paths of
// all written files, sorted.
func RenderPages(ecosystem string, entities []Entity, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create api output dir: %w", err)
	}

	byModule := make(map[string][]Entity)
	for _, e := range entities {
		byModule[e.Module] = append(byModule[e.Module], e)
	}

	modules := make([]string, 0, len(byModule))
	for mod := range byModule {
		modules = append(modules, mod)
	}
	sort.Strings(modules)

	written := make([]string, 0, len(modules)+1)
	for _, mod := range modules {
		page := renderModulePage(ecosystem, mod, byModule[mod])
		name := moduleFileName(mod)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(page), 0o600); err != nil {
			return nil, fmt.Errorf("write api page %s: %w", name, err)
		}
		written = append(written, name)
	}

	index := renderIndexPage(ecosystem, modules)
	if err := os.WriteFile(filepath.Join(outDir, "index.md"), []byte(index), 0o600); err != nil {
		return nil, fmt.Errorf("write api index: %w", err)
	}
	written = append(written, "index.md")
	sort.Strings(written)
	return written, nil
}

func moduleFileName(module string) string {
	return strings.ReplaceAll(module, ".", "_") + ".md"
}

func renderModulePage(ecosystem, module string, entities []Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Module `%s`\n\n", module)
	fmt.Fprintf(&b, "API reference for the %s module `%s`.\n\n", ecosystem, module)

	kinds := []struct {
		kind  EntityKind
		title string
	}{
		{KindType, "Types"},
		{KindFunction, "Functions"},
	}
	for _, k := range kinds {
		var matched []Entity
		for _, e := range entities {
			if e.Kind == k.kind {
				matched = append(matched, e)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
		fmt.Fprintf(&b, "## %s\n\n", k.title)
		for _, e := range matched {
			mark := ""
			if !e.Documented {
				mark = " *(undocumented)*"
			}
			fmt.Fprintf(&b, "- `%s` (%s:%d)%s\n", e.Name, e.File, e.Line, mark)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderIndexPage(ecosystem string, modules []string) string {
	var b strings.Builder
	title := strings.ToUpper(ecosystem[:1]) + ecosystem[1:]
	fmt.Fprintf(&b, "# %s API Reference\n\n", title)
	for _, mod := range modules {
		fmt.Fprintf(&b, "- [`%s`](%s)\n", mod, moduleFileName(mod))
	}
	b.WriteString("\n")
	return b.String()
}
