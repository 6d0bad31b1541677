package parser

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// AnchorTransformer appends a permalink to every heading that has an id:
// <a href="#id" class="header-anchor">#</a>.
type AnchorTransformer struct {
	Symbol string
}

func (t *AnchorTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	var headings []*ast.Heading
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, h)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, h := range headings {
		id, ok := h.AttributeString("id")
		if !ok {
			continue
		}
		idBytes, ok := id.([]byte)
		if !ok || len(idBytes) == 0 {
			continue
		}

		link := ast.NewLink()
		link.Destination = append([]byte("#"), idBytes...)
		link.SetAttributeString("class", []byte("header-anchor"))
		link.AppendChild(link, ast.NewString([]byte(t.Symbol)))

		h.AppendChild(h, ast.NewString([]byte(" ")))
		h.AppendChild(h, link)
	}
}
