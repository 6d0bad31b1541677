package run

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/social"
	"github.com/pustelto/sitepipe/builder/testutil"
)

var siteFiles = map[string]string{
	"src/_includes/css/index.css": "body { color: red }\n",
	"src/_includes/layouts/base.html": `<!doctype html><html><head><title>{{ withAuthor .Page.Title }}</title>` +
		`<link rel="stylesheet" href="{{ .Assets.css }}"></head><body>{{ .Content }}</body></html>`,
	"src/_includes/layouts/post.html": "---\nlayout: base\n---\n<article><h1>{{ .Page.Title }}</h1><p>{{ .Page.ReadingTime }}</p>{{ .Content }}</article>",
	"src/blog/blog.json":              `{"tags": ["posts"], "layout": "layouts/post.njk"}`,
	"src/blog/hello/index.md":         "---\ntitle: Hello World\ndate: 2020-07-24\npublished: true\ntags: [css]\nsocialDescription: Short intro\n---\n## Intro\n\nSome *text* from {{ isoDate .Page.Date }}.\n",
	"src/blog/draft/index.md":         "---\ntitle: Draft\ndate: 2020-08-01\n---\nNot yet.\n",
	"src/blog/bad/index.md":           "---\ntitle: Bad\ndate: 2020-06-01\n---\n{{ image \"cat.png\" }}\n",
	"src/blog/hello/anim.gif":         "GIF89a",
	"src/index.html":                  "---\ntitle: Home\nlayout: base\n---\n<ul>{{ range .Collections.Blogposts }}<li>{{ .Title }}</li>{{ end }}</ul>",
	"src/projects/one.md":             "---\ntitle: Project One\ntags: [project]\nfeatured: 2\n---\nA project.\n",
	"src/404.md":                      "---\ntitle: Not found\npermalink: 404.html\nsocialImage: false\n---\nNothing here.\n",
	"src/hidden.md":                   "---\ntitle: Hidden\npermalink: false\n---\nSecret.\n",
	"src/robots.txt":                  "User-agent: *\n",
	"src/_data/nav.json":              `{"items": ["blog", "talks"]}`,
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scripts.Entries = nil
	cfg.Scripts.CopyDir = ""
	cfg.Minify = false
	cfg.Passthrough = []string{"src/images", "src/blog/**/*.{gif}", "src/robots.txt"}
	return cfg
}

func newTestBuilder(t *testing.T) (*Builder, afero.Fs) {
	t.Helper()
	fs := testutil.CreateTestFilesystem(t, siteFiles)
	return NewBuilderWithFs(testConfig(), testutil.Logger(), fs, fs), fs
}

func TestBuild(t *testing.T) {
	b, fs := newTestBuilder(t)

	report, err := b.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Failures(), 1)
	assert.Equal(t, filepath.Join("src", "blog", "bad", "index.md"), report.Failures()[0].Item)
	assert.Equal(t, batch.KindMissingInput, report.Failures()[0].Kind)

	post := testutil.ReadFile(t, fs, "_site/blog/hello/index.html")
	assert.Contains(t, post, "<title>Hello World - Tomas Pustelnik")
	assert.Contains(t, post, `<link rel="stylesheet" href="/styles/main.css">`)
	assert.Contains(t, post, "<article><h1>Hello World</h1><p>1 min read</p>")
	assert.Contains(t, post, `id="intro"`)
	assert.Contains(t, post, "from 2020-07-24.")

	home := testutil.ReadFile(t, fs, "_site/index.html")
	assert.Contains(t, home, "<ul><li>Hello World</li></ul>")

	assert.Contains(t, testutil.ReadFile(t, fs, "_site/404.html"), "Nothing here.")
	assert.Contains(t, testutil.ReadFile(t, fs, "_site/styles/main.css"), "color")
	assert.Equal(t, "GIF89a", testutil.ReadFile(t, fs, "_site/blog/hello/anim.gif"))
	assert.Equal(t, "User-agent: *\n", testutil.ReadFile(t, fs, "_site/robots.txt"))

	testutil.AssertFileNotExists(t, fs, "_site/hidden/index.html")
	testutil.AssertFileNotExists(t, fs, "_site/blog/bad/index.html")

	feed := testutil.ReadFile(t, fs, "_site/feed.xml")
	assert.Contains(t, feed, "<title>Hello World</title>")
	assert.NotContains(t, feed, "Draft")

	entries, err := social.LoadManifest(fs, "_site/og_images_data.json")
	require.NoError(t, err)
	byTitle := map[string]social.Entry{}
	for _, e := range entries {
		byTitle[e.Title] = e
	}
	require.Contains(t, byTitle, "Hello World")
	assert.Equal(t, []string{"css"}, byTitle["Hello World"].Tags)
	assert.Equal(t, "Short intro", byTitle["Hello World"].Description)
	assert.NotContains(t, byTitle, "Project One")
	assert.NotContains(t, byTitle, "Not found")

	m := b.Metrics()
	require.NotNil(t, m)
	assert.Positive(t, m.Counts().PagesRendered)
}

func TestBuildRendersNavigation(t *testing.T) {
	files := map[string]string{
		"src/about.md": "---\ntitle: About\neleventyNavigation:\n  key: About\n  order: 2\n---\nMe.\n",
		"src/uses.md":  "---\ntitle: Uses\neleventyNavigation:\n  key: Uses\n  parent: About\n---\nGear.\n",
		"src/now.md":   "---\ntitle: Now\neleventyNavigation:\n  key: Now\n  order: 1\n---\nToday.\n",
		"src/nav.html": "---\ntitle: Nav\nlayout: base\n---\n{{ navigationToHTML (navigation .Collections) \"Uses\" }}" +
			"{{ range navigationBreadcrumb .Collections \"Uses\" }}[{{ .Title }}]{{ end }}",
	}
	for k, v := range siteFiles {
		files[k] = v
	}
	fs := testutil.CreateTestFilesystem(t, files)
	b := NewBuilderWithFs(testConfig(), testutil.Logger(), fs, fs)

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	nav := testutil.ReadFile(t, fs, "_site/nav/index.html")
	assert.Contains(t, nav, `<ul><li><a href="/now/">Now</a></li><li><a href="/about/">About</a>`+
		`<ul><li><a href="/uses/" class="active" aria-current="page">Uses</a></li></ul></li></ul>`)
	assert.Contains(t, nav, "[About]")
	assert.NotContains(t, nav, "[Uses]")
}

func TestBuildMinifiesHTML(t *testing.T) {
	b, fs := newTestBuilder(t)
	b.cfg.Minify = true
	b = NewBuilderWithFs(b.cfg, b.logger, fs, fs)

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	home := testutil.ReadFile(t, fs, "_site/index.html")
	assert.NotContains(t, home, "\n")
	assert.Contains(t, home, "<li>Hello World")
}

func TestBuildRunsHooks(t *testing.T) {
	b, _ := newTestBuilder(t)
	var calls int
	b.AddHook("social", func(context.Context) (*batch.Report, error) {
		calls++
		r := batch.NewReport("social")
		r.AddProcessed("hello-world.jpg")
		return r, nil
	})

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, report.Processed(), "hello-world.jpg")
}

func TestBuildMissingStylesAborts(t *testing.T) {
	b, fs := newTestBuilder(t)
	require.NoError(t, fs.Remove("src/_includes/css/index.css"))

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, batch.KindMissingInput, batch.KindOf(err))
}

func TestBuildChangedStylesOnly(t *testing.T) {
	b, fs := newTestBuilder(t)

	_, err := b.BuildChanged(context.Background(), "src/_includes/css/index.css")
	require.NoError(t, err)

	assert.Contains(t, testutil.ReadFile(t, fs, "_site/styles/main.css"), "color")
	testutil.AssertFileNotExists(t, fs, "_site/index.html")
}
