package csssplit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/pustelto/sitepipe/builder/stylesheet"
)

// keptAtRules survive purging whole.
var keptAtRules = map[string]bool{
	"font-face":           true,
	"charset":             true,
	"import":              true,
	"page":                true,
	"namespace":           true,
	"property":            true,
	"counter-style":       true,
	"font-feature-values": true,
}

// groupingAtRules are purged recursively and dropped once empty.
var groupingAtRules = map[string]bool{
	"media":     true,
	"supports":  true,
	"layer":     true,
	"container": true,
	"document":  true,
}

// Purge removes style rules none of whose selectors match an element in
// docs. Selectors cascadia cannot parse are kept.
func Purge(css []byte, docs [][]byte) ([]byte, error) {
	nodes, err := stylesheet.Parse(css)
	if err != nil {
		return nil, err
	}
	roots := make([]*html.Node, 0, len(docs))
	for i, d := range docs {
		root, err := html.Parse(bytes.NewReader(d))
		if err != nil {
			return nil, fmt.Errorf("parse document %d: %w", i, err)
		}
		roots = append(roots, root)
	}

	p := &purger{roots: roots, cache: map[string]bool{}}
	return stylesheet.Render(p.filter(nodes)), nil
}

type purger struct {
	roots []*html.Node
	cache map[string]bool
}

func (p *purger) filter(nodes []*stylesheet.Node) []*stylesheet.Node {
	var out []*stylesheet.Node
	for _, n := range nodes {
		switch n.Type {
		case stylesheet.RuleNode:
			if p.used(n) {
				out = append(out, n)
			}
		case stylesheet.AtRuleNode:
			name := strings.ToLower(n.Name)
			switch {
			case keptAtRules[name] || strings.HasSuffix(name, "keyframes"):
				out = append(out, n)
			case groupingAtRules[name] && n.HasBlock && len(n.Children) > 0:
				n.Children = p.filter(n.Children)
				if len(n.Children) > 0 {
					out = append(out, n)
				}
			case groupingAtRules[name] && n.HasBlock:
				// Empty @media or @supports bodies carry nothing.
			default:
				out = append(out, n)
			}
		}
	}
	return out
}

func (p *purger) used(n *stylesheet.Node) bool {
	for _, sel := range n.Selectors() {
		if p.matches(sel) {
			return true
		}
	}
	return false
}

func (p *purger) matches(sel string) bool {
	if v, ok := p.cache[sel]; ok {
		return v
	}
	v := true
	if compiled, err := cascadia.Compile(StripPseudo(sel)); err == nil {
		v = false
		for _, root := range p.roots {
			if compiled.MatchFirst(root) != nil {
				v = true
				break
			}
		}
	}
	p.cache[sel] = v
	return v
}

// StripPseudo removes pseudo-classes and pseudo-elements, with their
// arguments, so a selector matches whatever element it could ever style.
func StripPseudo(sel string) string {
	var b strings.Builder
	var quote byte
	bracket := 0
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(sel) {
				i++
				b.WriteByte(sel[i])
			} else if c == quote {
				quote = 0
			}
			continue
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			bracket++
		case c == ']':
			bracket--
		case c == '\\' && i+1 < len(sel):
			b.WriteByte(c)
			i++
			c = sel[i]
		case c == ':' && bracket == 0:
			i = skipPseudo(sel, i)
			continue
		}
		b.WriteByte(c)
	}

	out := strings.TrimSpace(b.String())
	if out == "" || strings.ContainsAny(out[len(out)-1:], ">+~") {
		out += " *"
	}
	return strings.TrimSpace(out)
}

// skipPseudo returns the index of the last byte of the pseudo selector that
// starts at sel[i].
func skipPseudo(sel string, i int) int {
	i++
	if i < len(sel) && sel[i] == ':' {
		i++
	}
	for i < len(sel) && isIdentByte(sel[i]) {
		i++
	}
	if i < len(sel) && sel[i] == '(' {
		depth := 0
		for ; i < len(sel); i++ {
			if sel[i] == '(' {
				depth++
			} else if sel[i] == ')' {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return i - 1
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
