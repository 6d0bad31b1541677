package critical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<!DOCTYPE html>
<html><head>
<meta charset="utf-8">
<title>Home</title>
<link rel="stylesheet" href="/styles/index.css?v=2">
<link rel="icon" href="/favicon.ico">
</head><body><h1 class="hero">Hello</h1></body></html>`

func TestInline(t *testing.T) {
	out, err := Inline([]byte(fixture), ".hero{color:red}")
	require.NoError(t, err)
	html := string(out)

	style := strings.Index(html, `<style data-critical="">.hero{color:red}</style>`)
	link := strings.Index(html, `<link rel="preload" href="/styles/index.css?v=2" as="style"`)
	require.NotEqual(t, -1, style, html)
	require.NotEqual(t, -1, link, html)
	assert.Less(t, style, link, "critical CSS goes before the first stylesheet")

	assert.Contains(t, html, `onload="this.onload=null;this.rel=&#39;stylesheet&#39;"`)
	assert.Contains(t, html, `<noscript><link rel="stylesheet" href="/styles/index.css?v=2"/></noscript>`)
	assert.Contains(t, html, `<link rel="icon" href="/favicon.ico"/>`)
	assert.True(t, IsInlined(out))
	assert.False(t, IsInlined([]byte(fixture)))
}

func TestInlineWithoutLinks(t *testing.T) {
	out, err := Inline([]byte(`<html><head><title>x</title></head><body></body></html>`), "body{margin:0}")
	require.NoError(t, err)
	assert.Contains(t, string(out), `<title>x</title><style data-critical="">body{margin:0}</style></head>`)
	assert.NotContains(t, string(out), "noscript")
}

func TestInlineEscapesClosingTag(t *testing.T) {
	out, err := Inline([]byte(fixture), `.a::after{content:"</style>"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), "</style>"))
}

func TestStylesheetHrefs(t *testing.T) {
	doc := []byte(`<head><link rel="stylesheet" href="/a.css?x=1&amp;y=2"><link rel="stylesheet" href="https://cdn.example.com/b.css"><link rel="preload" href="/c.css"></head>`)
	assert.Equal(t, []string{"/a.css?x=1&y=2", "https://cdn.example.com/b.css"}, StylesheetHrefs(doc))
}

func TestIsInlinedIgnoresBodyText(t *testing.T) {
	doc := `<html><head><link rel="stylesheet" href="/a.css"></head>
<body><p>Add data-critical to the tag:</p><code>&lt;style data-critical&gt;</code><style data-critical>.x{}</style></body></html>`
	assert.False(t, IsInlined([]byte(doc)))
	assert.True(t, IsInlined([]byte(`<html><head><style data-critical>.x{}</style></head><body></body></html>`)))
}

func TestPageURL(t *testing.T) {
	tests := map[string]string{
		"index.html":           "http://127.0.0.1:9/index.html",
		"blog/a b/index.html":  "http://127.0.0.1:9/blog/a%20b/index.html",
		"notes/#1?draft.html":  "http://127.0.0.1:9/notes/%231%3Fdraft.html",
		"blog/../about/x.html": "http://127.0.0.1:9/about/x.html",
	}
	for rel, want := range tests {
		assert.Equal(t, want, pageURL("http://127.0.0.1:9", rel), rel)
	}
}
