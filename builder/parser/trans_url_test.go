package parser

import (
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

func TestIsExternal(t *testing.T) {
	tests := []struct {
		name     string
		href     string
		expected bool
	}{
		{name: "https link", href: "https://example.com", expected: true},
		{name: "http link", href: "http://example.com/page", expected: true},
		{name: "upper case scheme", href: "HTTPS://example.com", expected: true},
		{name: "protocol relative", href: "//cdn.example.com/x.js", expected: true},
		{name: "absolute path", href: "/blog/post/", expected: false},
		{name: "relative path", href: "../other/", expected: false},
		{name: "fragment", href: "#heading", expected: false},
		{name: "word starting with http", href: "httpie/", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isExternal(tt.href); result != tt.expected {
				t.Errorf("isExternal(%q) = %v, want %v", tt.href, result, tt.expected)
			}
		})
	}
}

func TestURLTransformer(t *testing.T) {
	tests := []struct {
		name          string
		externalBlank bool
		input         string
		wantTarget    string
		wantRel       string
	}{
		{
			name:          "external link opens in new tab",
			externalBlank: true,
			input:         "[Site](https://example.com)",
			wantTarget:    "_blank",
			wantRel:       "noopener noreferrer",
		},
		{
			name:          "internal link untouched",
			externalBlank: true,
			input:         "[Post](/blog/post/)",
		},
		{
			name:          "external link with option off",
			externalBlank: false,
			input:         "[Site](https://example.com)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := goldmark.New(
				goldmark.WithParserOptions(
					parser.WithASTTransformers(
						util.Prioritized(&URLTransformer{ExternalBlank: tt.externalBlank}, 100),
					),
				),
			)

			reader := text.NewReader([]byte(tt.input))
			doc := md.Parser().Parse(reader)

			var link *ast.Link
			if err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
				if l, ok := n.(*ast.Link); ok && entering {
					link = l
				}
				return ast.WalkContinue, nil
			}); err != nil {
				t.Fatalf("ast.Walk failed: %v", err)
			}
			if link == nil {
				t.Fatal("no link found")
			}

			if got := attr(link, "target"); got != tt.wantTarget {
				t.Errorf("target = %q, want %q", got, tt.wantTarget)
			}
			if got := attr(link, "rel"); got != tt.wantRel {
				t.Errorf("rel = %q, want %q", got, tt.wantRel)
			}
		})
	}
}

func TestURLTransformer_LazyImages(t *testing.T) {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&URLTransformer{}, 100),
			),
		),
	)

	doc := md.Parser().Parse(text.NewReader([]byte("![Alt](./cat.png)")))

	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			found = true
			if got := attr(img, "loading"); got != "lazy" {
				t.Errorf("loading = %q, want lazy", got)
			}
		}
		return ast.WalkContinue, nil
	})
	if !found {
		t.Fatal("no image found")
	}
}

func attr(n ast.Node, name string) string {
	v, ok := n.AttributeString(name)
	if !ok {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return ""
}
