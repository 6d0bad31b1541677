package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// URLTransformer opens external links in a new tab and lazy-loads images.
type URLTransformer struct {
	ExternalBlank bool
}

func (t *URLTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch target := n.(type) {
		case *ast.Link:
			if t.ExternalBlank && isExternal(string(target.Destination)) {
				target.SetAttribute([]byte("target"), []byte("_blank"))
				target.SetAttribute([]byte("rel"), []byte("noopener noreferrer"))
			}
		case *ast.Image:
			target.SetAttribute([]byte("loading"), []byte("lazy"))
		}
		return ast.WalkContinue, nil
	})
}

// isExternal reports whether href leaves the site.
func isExternal(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "http://") ||
		strings.HasPrefix(href, "https://") ||
		strings.HasPrefix(href, "//")
}
