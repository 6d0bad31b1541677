package csssplit

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkName(t *testing.T) {
	tests := []struct {
		name       string
		htmlPath   string
		outputName string
		want       string
	}{
		{"explicit output name", "_site/blog/*/index.html", "article", "article.css"},
		{"explicit wins over folder", "_site/projects/index.html", "work", "work.css"},
		{"root pages", "_site/index.html", "", "index.css"},
		{"closest folder", "_site/projects/index.html", "", "projects.css"},
		{"nested folder", "_site/blog/2020/index.html", "", "2020.css"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkName(tt.htmlPath, "_site", tt.outputName))
		})
	}
}

func TestChunkNameFallbackIsStable(t *testing.T) {
	re := regexp.MustCompile(`^chunk-[0-9a-f]{9}\.css$`)

	a := ChunkName("_site/blog/*/index.html", "_site", "")
	b := ChunkName("_site/blog/*/index.html", "_site", "")
	c := ChunkName("_site/talks/**/index.html", "_site", "")

	assert.Regexp(t, re, a)
	assert.Regexp(t, re, c)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
