package xref

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// linkAttributes maps HTML tags to the attribute carrying a reference.
var linkAttributes = map[string]string{
	"a":      "href",
	"img":    "src",
	"link":   "href",
	"script": "src",
	"source": "src",
}

// ExtractHTMLRefs extracts reference destinations from an HTML document.
func ExtractHTMLRefs(r io.Reader) ([]Ref, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	refs := make([]Ref, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attrName, ok := linkAttributes[n.Data]; ok {
				for _, attr := range n.Attr {
					if attr.Key == attrName && attr.Val != "" {
						refs = append(refs, Ref{Kind: KindHTML, Destination: attr.Val})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}
