// Package xref scans documentation for inline cross-references, repairs the
// ones whose targets moved, and reports the ones that are genuinely broken.
package xref

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// RefKind classifies where a reference was found.
type RefKind string

const (
	KindInline              RefKind = "inline"
	KindImage               RefKind = "image"
	KindAuto                RefKind = "auto"
	KindReferenceDefinition RefKind = "reference_definition"
	KindHTML                RefKind = "html"
)

// Ref is one extracted reference destination.
type Ref struct {
	Kind        RefKind
	Destination string
}

// ExtractMarkdownRefs parses a markdown body and extracts link-like
// constructs. This is an analysis API; it does not re-render markdown.
func ExtractMarkdownRefs(body []byte) []Ref {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	refs := make([]Ref, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.AutoLink:
			refs = append(refs, Ref{Kind: KindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			refs = append(refs, Ref{Kind: KindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			// Goldmark resolves reference-style links to a Link node.
			refs = append(refs, Ref{Kind: KindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not the AST.
	defs := ctx.References()
	sort.Slice(defs, func(i, j int) bool {
		return string(defs[i].Label()) < string(defs[j].Label())
	})
	for _, def := range defs {
		refs = append(refs, Ref{Kind: KindReferenceDefinition, Destination: string(def.Destination())})
	}

	// Goldmark drops unbracketed destinations containing spaces, so authors
	// who link to "my file.md" would never see the link reported. A
	// permissive pass catches those; quoted titles stay with goldmark.
	for _, m := range spacedDestination.FindAllSubmatch(body, -1) {
		dest := strings.TrimSpace(string(m[1]))
		if strings.ContainsAny(dest, `"'`) || strings.HasPrefix(dest, "<") {
			continue
		}
		refs = append(refs, Ref{Kind: KindInline, Destination: dest})
	}
	return refs
}

var spacedDestination = regexp.MustCompile(`\]\(([^()\n]* [^()\n]*)\)`)

// IsExternal reports whether a destination points outside the docs tree.
func IsExternal(dest string) bool {
	lower := strings.ToLower(dest)
	for _, prefix := range []string{"http://", "https://", "mailto:", "ftp://", "tel:", "//"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// IsAnchor reports whether a destination is a bare in-page anchor.
func IsAnchor(dest string) bool {
	return strings.HasPrefix(dest, "#")
}
