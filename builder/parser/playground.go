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

// KindPlayground is the node kind of a live fence preview.
var KindPlayground = ast.NewNodeKind("Playground")

// PlaygroundNode is the live result of the fenced block before it.
type PlaygroundNode struct {
	ast.BaseBlock
	Lang string
	Code []byte
}

func (n *PlaygroundNode) Kind() ast.NodeKind { return KindPlayground }

func (n *PlaygroundNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Lang": n.Lang}, nil)
}

// playgroundLangs are the fence languages a browser can show live.
var playgroundLangs = map[string]bool{"html": true, "css": true}

type playgroundTransformer struct{}

// Transform adds a preview after every ```html playground or ```css
// playground fence. The fence itself is still highlighted as usual.
func (t *playgroundTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fence, ok := n.(*ast.FencedCodeBlock); ok && isPlayground(fence, source) {
			fences = append(fences, fence)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, fence := range fences {
		var code bytes.Buffer
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			code.Write(line.Value(source))
		}
		node := &PlaygroundNode{Lang: string(fence.Language(source)), Code: code.Bytes()}
		fence.Parent().InsertAfter(fence.Parent(), fence, node)
	}
}

func isPlayground(fence *ast.FencedCodeBlock, source []byte) bool {
	if fence.Info == nil || !playgroundLangs[string(fence.Language(source))] {
		return false
	}
	words := bytes.Fields(fence.Info.Segment.Value(source))
	for _, w := range words[1:] {
		if string(w) == "playground" {
			return true
		}
	}
	return false
}

type playgroundRenderer struct{}

func (r *playgroundRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindPlayground, r.renderPlayground)
}

func (r *playgroundRenderer) renderPlayground(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	node := n.(*PlaygroundNode)
	_, _ = w.WriteString(`<div class="playground" data-lang="` + node.Lang + `">` + "\n")
	if node.Lang == "css" {
		_, _ = w.WriteString("<style>\n")
		_, _ = w.Write(node.Code)
		_, _ = w.WriteString("</style>\n")
	} else {
		_, _ = w.Write(node.Code)
	}
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

type playground struct{}

// Playground renders a live preview below html and css fences whose info
// string carries the word playground.
var Playground = &playground{}

func (e *playground) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&playgroundTransformer{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&playgroundRenderer{}, 500),
	))
}
