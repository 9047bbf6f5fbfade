package toc

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Ace1928/docforge/internal/docs"
)

var titleCaser = cases.Title(language.English)

// Title resolves the display title of a markdown page: front matter "title"
// first, then the first heading, then the file name title-cased.
func Title(df *docs.DocFile) string {
	if err := df.LoadContent(); err != nil {
		return fileNameTitle(df.Name)
	}

	front, body := splitFrontMatter(df.Content)
	if len(front) > 0 {
		var fm struct {
			Title string `yaml:"title"`
		}
		if err := yaml.Unmarshal(front, &fm); err == nil && fm.Title != "" {
			return fm.Title
		}
	}

	if h := firstHeading(body); h != "" {
		return h
	}
	return fileNameTitle(df.Name)
}

// SectionTitle renders a section directory name as a display title.
func SectionTitle(section string) string {
	return fileNameTitle(section)
}

func fileNameTitle(name string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return titleCaser.String(cleaned)
}

// splitFrontMatter separates a leading YAML front matter block (delimited by
// "---" lines) from the markdown body.
func splitFrontMatter(content []byte) (front, body []byte) {
	trimmed := bytes.TrimLeft(content, "\ufeff")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) && !bytes.HasPrefix(trimmed, []byte("---\r\n")) {
		return nil, content
	}
	rest := trimmed[bytes.IndexByte(trimmed, '\n')+1:]
	for _, delim := range [][]byte{[]byte("\n---\n"), []byte("\n---\r\n")} {
		if idx := bytes.Index(rest, delim); idx >= 0 {
			return rest[:idx], rest[idx+len(delim):]
		}
	}
	// Unterminated front matter; treat the whole thing as body.
	return nil, content
}

// firstHeading returns the text of the first heading in the markdown body.
func firstHeading(body []byte) string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var found string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || found != "" {
			return gmast.WalkContinue, nil
		}
		heading, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		var sb strings.Builder
		for c := heading.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*gmast.Text); ok {
				sb.Write(t.Segment.Value(body))
			}
		}
		found = strings.TrimSpace(sb.String())
		return gmast.WalkStop, nil
	})
	return found
}
