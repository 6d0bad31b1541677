package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/config"
)

func convert(t *testing.T, src string) *Result {
	t.Helper()
	md := New(config.DefaultConfig().Markdown)
	res, err := Convert(md, []byte(src))
	require.NoError(t, err)
	return res
}

func TestConvert_HeaderAnchors(t *testing.T) {
	res := convert(t, "## Hello World\n")
	assert.Contains(t, string(res.HTML), `<h2 id="hello-world">Hello World <a href="#hello-world" class="header-anchor">#</a></h2>`)
}

func TestConvert_TOCPlaceholder(t *testing.T) {
	src := "[[toc]]\n\n## First\n\n### Sub\n\n## Second\n"
	res := convert(t, src)
	html := string(res.HTML)

	assert.Contains(t, html, `<nav class="toc"><ol><li><a href="#first">First</a><ol><li><a href="#sub">Sub</a></li></ol></li><li><a href="#second">Second</a></li></ol></nav>`)
	assert.NotContains(t, html, "[[toc]]")
	require.Len(t, res.TOC, 3)
	assert.Equal(t, "Sub", res.TOC[1].Text)
}

func TestConvert_TemplateStyleTOCPlaceholder(t *testing.T) {
	res := convert(t, "${toc}\n\n## Only\n")
	assert.Contains(t, string(res.HTML), `<nav class="toc">`)
	assert.NotContains(t, string(res.HTML), "${toc}")
}

func TestConvert_Kbd(t *testing.T) {
	res := convert(t, "Press [[Ctrl]] and [[C]] to copy.\n")
	html := string(res.HTML)
	assert.Contains(t, html, "<kbd>Ctrl</kbd>")
	assert.Contains(t, html, "<kbd>C</kbd>")
}

func TestConvert_KbdLeavesLinksAlone(t *testing.T) {
	res := convert(t, "[link](/about/)\n")
	assert.Contains(t, string(res.HTML), `<a href="/about/">link</a>`)
	assert.NotContains(t, string(res.HTML), "<kbd>")
}

func TestConvert_Abbreviations(t *testing.T) {
	src := "Write HTML, not HTMLX.\n\n*[HTML]: Hyper Text Markup Language\n"
	res := convert(t, src)
	html := string(res.HTML)

	assert.Contains(t, html, `<abbr title="Hyper Text Markup Language">HTML</abbr>`)
	assert.Equal(t, 1, strings.Count(html, "<abbr"))
	assert.NotContains(t, html, "*[HTML]")
	assert.Contains(t, html, "HTMLX")
}

func TestConvert_AbbreviationsSkipCode(t *testing.T) {
	src := "*[CSS]: Cascading Style Sheets\n\nUse `CSS` or CSS.\n"
	res := convert(t, src)
	html := string(res.HTML)

	assert.Contains(t, html, "<code>CSS</code>")
	assert.Equal(t, 1, strings.Count(html, "<abbr"))
}

func TestConvert_ExternalLinks(t *testing.T) {
	res := convert(t, "[Go](https://go.dev)\n")
	assert.Contains(t, string(res.HTML), `<a href="https://go.dev" target="_blank" rel="noopener noreferrer">Go</a>`)
}

func TestConvert_HardWrapsAndXHTML(t *testing.T) {
	res := convert(t, "first\nsecond\n")
	assert.Contains(t, string(res.HTML), "first<br />\nsecond")
}

func TestConvert_RawHTML(t *testing.T) {
	res := convert(t, "<div class=\"note\">hi</div>\n")
	assert.Contains(t, string(res.HTML), `<div class="note">hi</div>`)
}

func TestConvert_CodeWrapper(t *testing.T) {
	res := convert(t, "```go\nfmt.Println(1)\n```\n")
	assert.Contains(t, string(res.HTML), `<div class="code-wrapper" data-lang="go">`)
}

func TestConvert_WordCount(t *testing.T) {
	res := convert(t, "one two three\n\nfour five\n")
	assert.Equal(t, 5, res.WordCount)
}

func TestConvert_FrontMatterIsNotRendered(t *testing.T) {
	res := convert(t, "---\ntitle: Hi\n---\nBody\n")
	assert.Equal(t, "Hi", res.Meta["title"])
	assert.NotContains(t, string(res.HTML), "title:")
}

func TestConvert_Playground(t *testing.T) {
	src := "```html playground\n<button class=\"btn\">Click</button>\n```\n\n```css playground\n.btn { color: red; }\n```\n"
	res := convert(t, src)
	html := string(res.HTML)

	assert.Contains(t, html, `<div class="code-wrapper" data-lang="html">`)
	assert.Contains(t, html, "<div class=\"playground\" data-lang=\"html\">\n<button class=\"btn\">Click</button>\n</div>")
	assert.Contains(t, html, "<div class=\"playground\" data-lang=\"css\">\n<style>\n.btn { color: red; }\n</style>\n</div>")
	assert.Less(t, strings.Index(html, "code-wrapper"), strings.Index(html, `class="playground"`))
}

func TestConvert_PlaygroundNeedsMarker(t *testing.T) {
	res := convert(t, "```html\n<b>x</b>\n```\n\n```js playground\nalert(1)\n```\n")
	assert.NotContains(t, string(res.HTML), `class="playground"`)
}
