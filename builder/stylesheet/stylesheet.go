// Package stylesheet parses CSS into a small rule tree that the style
// compiler, the splitter's purge step and critical CSS extraction edit and
// render back out.
package stylesheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type NodeType int

const (
	RuleNode NodeType = iota
	AtRuleNode
)

type Declaration struct {
	Property string
	Value    string
}

// Node is a style rule or an at-rule.
//
// Style rules carry a Selector and Declarations. At-rules carry a Name
// (without "@") and Prelude; block at-rules such as @media hold nested
// Children, @font-face and @page hold Declarations and anything unknown
// keeps its body verbatim in Raw.
type Node struct {
	Type         NodeType
	Selector     string
	Name         string
	Prelude      string
	HasBlock     bool
	Declarations []Declaration
	Children     []*Node
	Raw          string
}

// Selectors splits a selector list on top-level commas.
func (n *Node) Selectors() []string {
	return SplitSelectors(n.Selector)
}

// Parse reads a stylesheet. Comments are dropped. Malformed declarations are
// skipped the way a browser would skip them.
func Parse(src []byte) ([]*Node, error) {
	p := css.NewParser(parse.NewInputBytes(src), false)
	root := &Node{HasBlock: true}
	stack := []*Node{root}

	push := func(n *Node) {
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}

	for {
		gt, _, data := p.Next()
		top := stack[len(stack)-1]

		switch gt {
		case css.ErrorGrammar:
			if p.HasParseError() {
				continue
			}
			if err := p.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse css: %w", err)
			}
			return root.Children, nil
		case css.CommentGrammar:
		case css.AtRuleGrammar:
			push(&Node{Type: AtRuleNode, Name: atName(data), Prelude: joinValues(p.Values())})
		case css.BeginAtRuleGrammar:
			n := &Node{Type: AtRuleNode, Name: atName(data), Prelude: joinValues(p.Values()), HasBlock: true}
			push(n)
			stack = append(stack, n)
		case css.BeginRulesetGrammar:
			n := &Node{Type: RuleNode, Selector: joinValues(p.Values()), HasBlock: true}
			push(n)
			stack = append(stack, n)
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case css.DeclarationGrammar:
			top.Declarations = append(top.Declarations, Declaration{
				Property: string(data),
				Value:    joinValues(p.Values()),
			})
		case css.CustomPropertyGrammar:
			top.Declarations = append(top.Declarations, Declaration{
				Property: string(data),
				Value:    joinValues(p.Values()),
			})
		case css.TokenGrammar:
			if top != root {
				top.Raw += string(data)
			}
		}
	}
}

func atName(data []byte) string {
	return strings.TrimPrefix(string(data), "@")
}

func joinValues(values []css.Token) string {
	var b strings.Builder
	for _, v := range values {
		b.Write(v.Data)
	}
	return strings.TrimSpace(b.String())
}

// Render serializes nodes back to CSS, one top-level rule per line.
func Render(nodes []*Node) []byte {
	var buf bytes.Buffer
	for _, n := range nodes {
		writeNode(&buf, n)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n *Node) {
	switch n.Type {
	case RuleNode:
		buf.WriteString(n.Selector)
		buf.WriteByte('{')
		writeDeclarations(buf, n.Declarations)
		buf.WriteByte('}')
	case AtRuleNode:
		buf.WriteByte('@')
		buf.WriteString(n.Name)
		if n.Prelude != "" {
			buf.WriteByte(' ')
			buf.WriteString(n.Prelude)
		}
		if !n.HasBlock {
			buf.WriteByte(';')
			return
		}
		buf.WriteByte('{')
		switch {
		case len(n.Declarations) > 0:
			writeDeclarations(buf, n.Declarations)
		case len(n.Children) > 0:
			for _, c := range n.Children {
				writeNode(buf, c)
			}
		default:
			buf.WriteString(n.Raw)
		}
		buf.WriteByte('}')
	}
}

func writeDeclarations(buf *bytes.Buffer, decls []Declaration) {
	for i, d := range decls {
		if i > 0 {
			buf.WriteByte(';')
		}
		buf.WriteString(d.Property)
		buf.WriteByte(':')
		buf.WriteString(d.Value)
	}
}

// SplitSelectors splits a selector list on commas that are not nested in
// parentheses, brackets or strings.
func SplitSelectors(list string) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			if s := strings.TrimSpace(list[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(list[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// Walk calls fn for every node depth first. Returning false skips children.
func Walk(nodes []*Node, fn func(*Node) bool) {
	for _, n := range nodes {
		if fn(n) {
			Walk(n.Children, fn)
		}
	}
}
