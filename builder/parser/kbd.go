package parser

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindKbd is the node kind of a keyboard key.
var KindKbd = ast.NewNodeKind("Kbd")

// KbdNode renders as <kbd>.
type KbdNode struct {
	ast.BaseInline
}

func (n *KbdNode) Kind() ast.NodeKind { return KindKbd }

func (n *KbdNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type kbdParser struct{}

func (p *kbdParser) Trigger() []byte {
	return []byte{'['}
}

// Parse accepts [[key]] on a single line. [[toc]] is left to the TOC
// transformer.
func (p *kbdParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if len(line) < 5 || line[1] != '[' {
		return nil
	}
	end := bytes.Index(line[2:], []byte("]]"))
	if end < 1 {
		return nil
	}
	inner := line[2 : 2+end]
	if bytes.ContainsAny(inner, "[]\r\n") || string(bytes.TrimSpace(inner)) == "toc" {
		return nil
	}

	node := &KbdNode{}
	start := segment.Start + 2
	node.AppendChild(node, ast.NewTextSegment(text.NewSegment(start, start+end)))
	block.Advance(end + 4)
	return node
}

type kbdRenderer struct{}

func (r *kbdRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindKbd, r.renderKbd)
}

func (r *kbdRenderer) renderKbd(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<kbd>")
	} else {
		_, _ = w.WriteString("</kbd>")
	}
	return ast.WalkContinue, nil
}

type kbd struct{}

// Kbd renders [[Ctrl]] as <kbd>Ctrl</kbd>.
var Kbd = &kbd{}

func (e *kbd) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&kbdParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&kbdRenderer{}, 500),
	))
}
