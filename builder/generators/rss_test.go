package generators

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/models"
)

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://pustelto.com/blog/x/", AbsoluteURL("https://pustelto.com/", "/blog/x/"))
	assert.Equal(t, "https://pustelto.com/feed.xml", AbsoluteURL("https://pustelto.com", "feed.xml"))
}

func TestGenerateRSS(t *testing.T) {
	fs := afero.NewMemMapFs()
	site := config.SiteConfig{Title: "Site", URL: "https://example.com/", Description: "Desc", Language: "en"}
	posts := []*models.Page{
		{Title: "First & best", URL: "/blog/first/", Description: "one", Date: time.Date(2020, 7, 24, 0, 0, 0, 0, time.UTC)},
		{Title: "Second", URL: "/blog/second/", Date: time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, GenerateRSS(fs, "_site/feed.xml", "/feed.xml", site, posts))

	data, err := afero.ReadFile(fs, "_site/feed.xml")
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	assert.Contains(t, out, "<title>First &amp; best</title>")
	assert.Contains(t, out, "<link>https://example.com/blog/first/</link>")
	assert.Contains(t, out, "<pubDate>Fri, 24 Jul 2020 00:00:00 +0000</pubDate>")
	assert.Contains(t, out, "<lastBuildDate>Sat, 02 Jan 2021 00:00:00 +0000</lastBuildDate>")
	assert.Contains(t, out, `<atom:link href="https://example.com/feed.xml" rel="self" type="application/rss+xml"></atom:link>`)
}
