package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opts = CardOptions{Byline: "Tomas Pustelnik", Link: "pustelto.com", Width: 1200, Height: 630}

func TestCardHTMLBylineWithoutDescription(t *testing.T) {
	html, err := CardHTML(Entry{Title: "Splitting CSS", Tags: []string{"css", "performance"}}, opts)
	require.NoError(t, err)

	assert.Contains(t, html, `<span class="name">Tomas Pustelnik</span>`)
	assert.Contains(t, html, `<h1 class="title">Splitting CSS</h1>`)
	assert.Contains(t, html, `<ul class="tags"><li>css</li><li>performance</li></ul>`)
	assert.Contains(t, html, `<span class="link">pustelto.com</span>`)
	assert.NotContains(t, html, `<span class="tags">`)
	assert.Contains(t, html, "width: 1200px; height: 630px;")
}

func TestCardHTMLDescriptionHidesByline(t *testing.T) {
	html, err := CardHTML(Entry{Title: "Talks", Description: "Conference talks & slides"}, opts)
	require.NoError(t, err)

	assert.Contains(t, html, `<span class="name"></span>`)
	assert.NotContains(t, html, "Tomas Pustelnik")
	assert.Contains(t, html, `<span class="tags">Conference talks &amp; slides</span>`)
}

func TestCardHTMLEscapesTitle(t *testing.T) {
	html, err := CardHTML(Entry{Title: `<script>alert("x")</script>`}, opts)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestFileName(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{Title: "Splitting CSS per Page"}, "splitting-css-per-page.jpg"},
		{Entry{Title: "Ignored", Filename: "custom"}, "custom.jpg"},
		{Entry{Title: "Ignored", Filename: "custom.jpg"}, "custom.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.entry))
	}
}
