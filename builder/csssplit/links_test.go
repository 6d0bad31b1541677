package csssplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head>
<link rel="preload" as="style" href="/styles/main.css?v=123#x">
<link rel="stylesheet" href="/styles/main.css?v=123#x">
<link rel="stylesheet" href="/styles/print.css">
<link rel="stylesheet" href="/styles/not-main.css">
</head><body><p>hi</p></body></html>`

func TestRewriteLinksKeepsQuery(t *testing.T) {
	out, n, err := RewriteLinks([]byte(page), "main.css", "article.css")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	html := string(out)
	assert.Equal(t, 2, strings.Count(html, `href="/styles/article.css?v=123#x"`))
	assert.Contains(t, html, `href="/styles/print.css"`)
	assert.Contains(t, html, `href="/styles/not-main.css"`)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
}

func TestRewriteLinksNoMatch(t *testing.T) {
	doc := []byte(`<html><head><link rel="icon" href="/styles/main.css"></head></html>`)
	out, n, err := RewriteLinks(doc, "main.css", "index.css")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, doc, out)
}

func TestReplaceFileName(t *testing.T) {
	tests := []struct {
		href    string
		want    string
		changed bool
	}{
		{"main.css", "blog.css", true},
		{"../styles/main.css?a=1&b=2", "../styles/blog.css?a=1&b=2", true},
		{"https://cdn.example.com/main.css#top", "https://cdn.example.com/blog.css#top", true},
		{"/styles/main.css/other.css", "/styles/main.css/other.css", false},
		{"/styles/xmain.css", "/styles/xmain.css", false},
	}
	for _, tt := range tests {
		got, changed := replaceFileName(tt.href, "main.css", "blog.css")
		assert.Equal(t, tt.want, got, tt.href)
		assert.Equal(t, tt.changed, changed, tt.href)
	}
}
