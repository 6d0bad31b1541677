package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var abbrKey = parser.NewContextKey()

var abbrDefinitionRe = regexp.MustCompile(`^\*\[([^\]]+)\]:[ \t]*(.*?)\s*$`)

// GetAbbreviations returns the *[ABBR]: Title definitions of the parsed
// document.
func GetAbbreviations(pc parser.Context) map[string]string {
	if v := pc.Get(abbrKey); v != nil {
		return v.(map[string]string)
	}
	return nil
}

// KindAbbreviation is the node kind of an expanded abbreviation.
var KindAbbreviation = ast.NewNodeKind("Abbreviation")

// Abbreviation renders as <abbr title="...">.
type Abbreviation struct {
	ast.BaseInline
	Title string
}

func (n *Abbreviation) Kind() ast.NodeKind { return KindAbbreviation }

func (n *Abbreviation) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Title": n.Title}, nil)
}

var kindAbbrDefinition = ast.NewNodeKind("AbbreviationDefinition")

type abbrDefinition struct {
	ast.BaseBlock
}

func (n *abbrDefinition) Kind() ast.NodeKind { return kindAbbrDefinition }

func (n *abbrDefinition) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type abbrDefinitionParser struct{}

func (b *abbrDefinitionParser) Trigger() []byte {
	return []byte{'*'}
}

func (b *abbrDefinitionParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	m := abbrDefinitionRe.FindSubmatch(line)
	if m == nil {
		return nil, parser.NoChildren
	}
	label := strings.TrimSpace(string(m[1]))
	title := string(m[2])
	if label == "" || title == "" {
		return nil, parser.NoChildren
	}

	defs := GetAbbreviations(pc)
	if defs == nil {
		defs = map[string]string{}
		pc.Set(abbrKey, defs)
	}
	// First definition wins
	if _, ok := defs[label]; !ok {
		defs[label] = title
	}

	reader.AdvanceToEOL()
	return &abbrDefinition{}, parser.NoChildren
}

func (b *abbrDefinitionParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	return parser.Close
}

func (b *abbrDefinitionParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	node.Parent().RemoveChild(node.Parent(), node)
}

func (b *abbrDefinitionParser) CanInterruptParagraph() bool {
	return true
}

func (b *abbrDefinitionParser) CanAcceptIndentedLine() bool {
	return false
}

// abbrTransformer wraps whole-word occurrences of each defined abbreviation.
// Code spans are left alone.
type abbrTransformer struct{}

type abbrMatch struct {
	start, stop int
	title       string
}

func (t *abbrTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	defs := GetAbbreviations(pc)
	if len(defs) == 0 {
		return
	}
	re := abbrPattern(defs)
	source := reader.Source()

	pending := map[*ast.Text][]abbrMatch{}
	var order []*ast.Text
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindHTMLBlock, KindKbd:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			tn := n.(*ast.Text)
			if tn.IsRaw() {
				return ast.WalkContinue, nil
			}
			if matches := findAbbreviations(re, tn.Segment.Value(source), defs); len(matches) > 0 {
				pending[tn] = matches
				order = append(order, tn)
			}
		}
		return ast.WalkContinue, nil
	})

	for _, tn := range order {
		splitAbbreviations(tn, pending[tn])
	}
}

func abbrPattern(defs map[string]string) *regexp.Regexp {
	labels := make([]string, 0, len(defs))
	for label := range defs {
		labels = append(labels, label)
	}
	// Longest first so "HTML5" wins over "HTML"
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) > len(labels[j])
		}
		return labels[i] < labels[j]
	})
	for i, label := range labels {
		labels[i] = regexp.QuoteMeta(label)
	}
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(` + strings.Join(labels, "|") + `)`)
}

func findAbbreviations(re *regexp.Regexp, value []byte, defs map[string]string) []abbrMatch {
	var out []abbrMatch
	for _, loc := range re.FindAllSubmatchIndex(value, -1) {
		start, stop := loc[2], loc[3]
		if stop < len(value) {
			r, _ := utf8.DecodeRune(value[stop:])
			if isWordRune(r) {
				continue
			}
		}
		out = append(out, abbrMatch{start: start, stop: stop, title: defs[string(value[start:stop])]})
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// splitAbbreviations inserts the text before each match and the abbreviation
// itself ahead of tn. tn keeps the tail and its line break flags.
func splitAbbreviations(tn *ast.Text, matches []abbrMatch) {
	parent := tn.Parent()
	seg := tn.Segment
	cursor := seg.Start
	for _, m := range matches {
		start, stop := seg.Start+m.start, seg.Start+m.stop
		if start > cursor {
			parent.InsertBefore(parent, tn, ast.NewTextSegment(text.NewSegment(cursor, start)))
		}
		abbr := &Abbreviation{Title: m.title}
		abbr.AppendChild(abbr, ast.NewTextSegment(text.NewSegment(start, stop)))
		parent.InsertBefore(parent, tn, abbr)
		cursor = stop
	}
	tn.Segment = text.NewSegment(cursor, seg.Stop)
	if tn.Segment.IsEmpty() && !tn.SoftLineBreak() && !tn.HardLineBreak() {
		parent.RemoveChild(parent, tn)
	}
}

type abbrRenderer struct{}

func (r *abbrRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAbbreviation, r.renderAbbreviation)
}

func (r *abbrRenderer) renderAbbreviation(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*Abbreviation)
		_, _ = w.WriteString(`<abbr title="`)
		_, _ = w.Write(util.EscapeHTML([]byte(n.Title)))
		_, _ = w.WriteString(`">`)
	} else {
		_, _ = w.WriteString("</abbr>")
	}
	return ast.WalkContinue, nil
}

type abbreviations struct{}

// Abbreviations removes *[HTML]: Hyper Text Markup Language lines and wraps
// every whole-word HTML in the document with <abbr>.
var Abbreviations = &abbreviations{}

func (e *abbreviations) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&abbrDefinitionParser{}, 150)),
		parser.WithASTTransformers(util.Prioritized(&abbrTransformer{}, 100)),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&abbrRenderer{}, 500),
	))
}
