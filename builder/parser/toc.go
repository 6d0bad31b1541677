package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/pustelto/sitepipe/builder/models"
)

var tocKey = parser.NewContextKey()

var tocPlaceholders = []string{"[[toc]]", "${toc}"}

func GetTOC(pc parser.Context) []models.TOCEntry {
	if v := pc.Get(tocKey); v != nil {
		return v.([]models.TOCEntry)
	}
	return nil
}

// KindTOC is the node kind of a rendered table of contents.
var KindTOC = ast.NewNodeKind("TOC")

// TOC replaces a placeholder paragraph.
type TOC struct {
	ast.BaseBlock
	Entries []models.TOCEntry
	Class   string
}

func (n *TOC) Kind() ast.NodeKind { return KindTOC }

func (n *TOC) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Class": n.Class}, nil)
}

// TOCTransformer collects h2-h6 headings into the parser context and swaps
// [[toc]] and ${toc} paragraphs for a TOC node.
type TOCTransformer struct {
	Class string
}

func (t *TOCTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	var toc []models.TOCEntry
	var placeholders []ast.Node
	source := reader.Source()

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.Kind() {
		case ast.KindParagraph:
			if isTOCPlaceholder(n, source) {
				placeholders = append(placeholders, n)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindHeading:
			heading := n.(*ast.Heading)
			if heading.Level < 2 || heading.Level > 6 {
				return ast.WalkSkipChildren, nil
			}

			var headerText strings.Builder
			walker := func(child ast.Node, entering bool) (ast.WalkStatus, error) {
				if !entering {
					return ast.WalkContinue, nil
				}
				switch c := child.(type) {
				case *ast.Text:
					headerText.Write(c.Segment.Value(source))
				case *ast.String:
					if c.IsCode() {
						headerText.Write(util.ResolveEntityNames(c.Value))
					} else {
						headerText.Write(c.Value)
					}
				}
				return ast.WalkContinue, nil
			}
			_ = ast.Walk(heading, walker)

			id, _ := heading.AttributeString("id")
			if id != nil {
				toc = append(toc, models.TOCEntry{
					ID:    string(id.([]byte)),
					Text:  headerText.String(),
					Level: heading.Level,
				})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	pc.Set(tocKey, toc)

	for _, p := range placeholders {
		p.Parent().ReplaceChild(p.Parent(), p, &TOC{Entries: toc, Class: t.Class})
	}
}

func isTOCPlaceholder(p ast.Node, source []byte) bool {
	var buf bytes.Buffer
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			return false
		}
		buf.Write(t.Segment.Value(source))
	}
	value := strings.TrimSpace(buf.String())
	for _, placeholder := range tocPlaceholders {
		if value == placeholder {
			return true
		}
	}
	return false
}

type tocItem struct {
	entry    models.TOCEntry
	children []*tocItem
}

// nestTOC turns the flat heading list into a tree keyed by level. A deeper
// heading becomes a child of the closest shallower one before it.
func nestTOC(entries []models.TOCEntry) []*tocItem {
	root := &tocItem{entry: models.TOCEntry{Level: 1}}
	stack := []*tocItem{root}
	for _, e := range entries {
		for len(stack) > 1 && stack[len(stack)-1].entry.Level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		item := &tocItem{entry: e}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, item)
		stack = append(stack, item)
	}
	return root.children
}

type tocRenderer struct{}

func (r *tocRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindTOC, r.renderTOC)
}

func (r *tocRenderer) renderTOC(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*TOC)
	_, _ = w.WriteString(`<nav class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Class)))
	_, _ = w.WriteString(`">`)
	writeTOCList(w, nestTOC(n.Entries))
	_, _ = w.WriteString("</nav>\n")
	return ast.WalkSkipChildren, nil
}

func writeTOCList(w util.BufWriter, items []*tocItem) {
	_, _ = w.WriteString("<ol>")
	for _, item := range items {
		_, _ = w.WriteString(`<li><a href="#`)
		_, _ = w.Write(util.EscapeHTML([]byte(item.entry.ID)))
		_, _ = w.WriteString(`">`)
		_, _ = w.Write(util.EscapeHTML([]byte(item.entry.Text)))
		_, _ = w.WriteString("</a>")
		if len(item.children) > 0 {
			writeTOCList(w, item.children)
		}
		_, _ = w.WriteString("</li>")
	}
	_, _ = w.WriteString("</ol>")
}

type tocExtension struct {
	Class string
}

func (e *tocExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&TOCTransformer{Class: e.Class}, 200),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&tocRenderer{}, 500),
	))
}
