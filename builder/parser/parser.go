// Configures the markdown dialect used for page bodies
package parser

import (
	"bytes"
	"fmt"
	"strings"

	chroma_html "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/models"
)

func codeBlockWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	if entering {
		langBytes, _ := c.Language()
		lang := string(langBytes)
		if lang == "" {
			lang = "text"
		}
		// Write the wrapper div with data-lang attribute
		_, _ = w.WriteString(`<div class="code-wrapper" data-lang="` + lang + `">`)
	} else {
		_, _ = w.WriteString(`</div>`)
	}
}

// Result is one converted markdown document.
type Result struct {
	HTML      []byte
	TOC       []models.TOCEntry
	Meta      map[string]interface{}
	WordCount int
}

// Convert parses and renders src with md and collects the data the page
// engine needs from the parser context.
func Convert(md goldmark.Markdown, src []byte) (*Result, error) {
	pc := parser.NewContext()
	doc := md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	return &Result{
		HTML:      buf.Bytes(),
		TOC:       GetTOC(pc),
		Meta:      normalizeMap(meta.Get(pc)),
		WordCount: len(strings.Fields(ExtractPlainText(doc, src))),
	}, nil
}

// ExtractPlainText walks the AST and returns a clean string of all text content
func ExtractPlainText(node ast.Node, source []byte) string {
	var out strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.Kind() {
		case ast.KindText:
			t := n.(*ast.Text)
			out.Write(t.Segment.Value(source))
			out.WriteString(" ")
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			l := n.Lines().Len()
			for i := 0; i < l; i++ {
				line := n.Lines().At(i)
				out.Write(line.Value(source))
			}
			out.WriteString(" ")
		case ast.KindHeading:
			// Ensure headings are separated
			out.WriteString("\n")
		}
		return ast.WalkContinue, nil
	})
	return out.String()
}

// New creates the goldmark instance for page bodies: raw HTML, XHTML output,
// hard line breaks and typographic quotes, plus header anchors, a [[toc]]
// placeholder, [[kbd]] keys, *[abbr] definitions and playground fences.
func New(cfg config.MarkdownConfig) goldmark.Markdown {
	symbol := cfg.AnchorSymbol
	if symbol == "" {
		symbol = "#"
	}
	tocClass := cfg.TOCClass
	if tocClass == "" {
		tocClass = "toc"
	}
	style := cfg.HighlightStyle
	if style == "" {
		style = "dracula"
	}

	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Typographer,
			meta.Meta,
			Kbd,
			Abbreviations,
			Playground,
			&tocExtension{Class: tocClass},
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chroma_html.WithClasses(true),
				),
				highlighting.WithWrapperRenderer(codeBlockWrapper),
			),
		),
		goldmark.WithParserOptions(
			// Lower priority runs first
			parser.WithASTTransformers(
				util.Prioritized(&AnchorTransformer{Symbol: symbol}, 300),
				util.Prioritized(&URLTransformer{ExternalBlank: cfg.ExternalLinkBlank}, 400),
			),
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			html.WithXHTML(),
			html.WithHardWraps(),
		),
	)
}
