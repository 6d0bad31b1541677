// Package benchmarks provides performance tests for the build pipeline.
// Run with: go test -bench=. -benchmem ./builder/benchmarks/
package benchmarks

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/critical"
	"github.com/pustelto/sitepipe/builder/csssplit"
	"github.com/pustelto/sitepipe/builder/parser"
	"github.com/pustelto/sitepipe/builder/run"
	"github.com/pustelto/sitepipe/builder/testutil"
	"github.com/pustelto/sitepipe/builder/utils"
)

func createStylesheet(rules int) []byte {
	var b strings.Builder
	b.WriteString("@font-face { font-family: X; src: url(x.woff2); }\n")
	for i := 0; i < rules; i++ {
		fmt.Fprintf(&b, ".c%d > a:hover { color: #%06x }\n", i, i)
		if i%10 == 0 {
			fmt.Fprintf(&b, "@media (min-width: %dpx) { .c%d { margin: 0 } }\n", 300+i, i)
		}
	}
	return []byte(b.String())
}

func createPage(classes int) []byte {
	var b strings.Builder
	b.WriteString(`<!doctype html><html><head><link rel="stylesheet" href="/styles/main.css"></head><body>`)
	for i := 0; i < classes; i += 3 {
		fmt.Fprintf(&b, `<div class="c%d"><a href="#">link %d</a></div>`, i, i)
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// BenchmarkPurge measures unused-rule removal against a growing stylesheet
func BenchmarkPurge(b *testing.B) {
	for _, size := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("Rules-%d", size), func(b *testing.B) {
			css := createStylesheet(size)
			docs := [][]byte{createPage(size), createPage(size / 2)}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := csssplit.Purge(css, docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkInline(b *testing.B) {
	doc := createPage(500)
	css := string(createStylesheet(50))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := critical.Inline(doc, css); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMinifyHTML(b *testing.B) {
	doc := createPage(1000)
	b.SetBytes(int64(len(doc)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := utils.MinifyHTML(doc, "index.html"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMarkdown tests conversion with highlighting and TOC
func BenchmarkMarkdown(b *testing.B) {
	md := parser.New(config.DefaultConfig().Markdown)
	var src strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&src, "## Section %d\n\nSome *text* with `code` and a [link](https://example.com).\n\n```go\nfunc f%d() int { return %d }\n```\n\n", i, i, i)
	}
	body := []byte(src.String())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := parser.Convert(md, body); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGlobMatch(b *testing.B) {
	g, err := utils.CompileGlob("src/blog/**/*.{gif,png}")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Match("src/blog/2020/split-css/images/demo.gif")
	}
}

// BenchmarkBuild runs a full in-memory build with a growing number of posts
func BenchmarkBuild(b *testing.B) {
	for _, posts := range []int{10, 100} {
		b.Run(fmt.Sprintf("Posts-%d", posts), func(b *testing.B) {
			files := map[string]string{
				"src/_includes/css/index.css":     "body { color: red }\n",
				"src/_includes/layouts/base.html": `<html><head><title>{{ .Page.Title }}</title></head><body>{{ .Content }}</body></html>`,
				"src/blog/blog.json":              `{"tags": ["posts"], "layout": "base"}`,
				"src/index.html":                  "---\nlayout: base\n---\n{{ range .Collections.Blogposts }}{{ .Title }}{{ end }}",
			}
			for i := 0; i < posts; i++ {
				files[fmt.Sprintf("src/blog/post-%d/index.md", i)] = fmt.Sprintf("---\ntitle: Post %d\ndate: 2020-01-%02d\npublished: true\n---\n## Hello\n\nBody of post %d.\n", i, i%28+1, i)
			}
			cfg := config.DefaultConfig()
			cfg.Scripts.Entries = nil
			cfg.Scripts.CopyDir = ""
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				fs := testutil.CreateTestFilesystem(b, files)
				builder := run.NewBuilderWithFs(cfg, testutil.Logger(), fs, fs)
				b.StartTimer()
				if _, err := builder.Build(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
