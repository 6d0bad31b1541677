package styles

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/stylesheet"
)

func parse(t *testing.T, src string) []*stylesheet.Node {
	t.Helper()
	nodes, err := stylesheet.Parse([]byte(src))
	require.NoError(t, err)
	return nodes
}

func TestApplyCustomMedia(t *testing.T) {
	nodes := parse(t, `
@custom-media --small-viewport (max-width: 39.4375rem);
@media (--small-viewport) { .a { color: red } }
@media (--unknown) { .b { color: blue } }
`)
	nodes, count := ApplyCustomMedia(nodes)
	assert.Equal(t, 1, count)
	require.Len(t, nodes, 2)
	assert.Equal(t, "(max-width:39.4375rem)", nodes[0].Prelude)
	assert.Equal(t, "(--unknown)", nodes[1].Prelude)
}

func TestStripUnits(t *testing.T) {
	nodes := parse(t, `.a { width: strip(10px); margin: calc(strip(2.5rem) * 1px) }`)
	StripUnits(nodes)
	require.Len(t, nodes[0].Declarations, 2)
	assert.Equal(t, "10", nodes[0].Declarations[0].Value)
	assert.Contains(t, nodes[0].Declarations[1].Value, "2.5")
	assert.NotContains(t, nodes[0].Declarations[1].Value, "strip")
}

func TestExtractMedia(t *testing.T) {
	nodes := parse(t, `
.a { color: red }
@media print { .a { color: black } }
@media (min-width: 40em) { .a { color: green } }
`)
	kept, moved := ExtractMedia(nodes, "PRINT")
	require.Len(t, moved, 1)
	assert.Len(t, kept, 2)

	kept, moved = ExtractMedia(kept, "(min-width:  40em)")
	require.Len(t, moved, 1)
	assert.Len(t, kept, 1)
}

func TestCompile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "src/css/index.css", []byte(`
@import "./base.css";
@custom-media --small (max-width: 40rem);
.card { .title { color: red } }
@media (--small) { .card { padding: strip(4px) } }
@media print { .card { display: none } }
`), 0644))
	require.NoError(t, afero.WriteFile(fs, "src/css/base.css", []byte(`body { margin: 0; background: url(/images/bg.png) }`), 0644))

	res, err := Compile(context.Background(), fs, Options{
		Entry:        "src/css/index.css",
		OutDir:       "_site",
		Output:       "styles/main.css",
		MediaQueries: map[string]string{"print": "print"},
		Minify:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"_site/styles/main.css", "_site/styles/main-print.css"}, res.Files)
	assert.Equal(t, 1, res.CustomMedia)

	main, err := afero.ReadFile(fs, "_site/styles/main.css")
	require.NoError(t, err)
	css := string(main)
	assert.Contains(t, css, "margin:0")
	assert.Contains(t, css, "/images/bg.png")
	assert.Contains(t, css, ".card .title")
	assert.Contains(t, css, "max-width")
	assert.NotContains(t, css, "--small")
	assert.NotContains(t, css, "strip(")
	assert.NotContains(t, css, "print")

	printCSS, err := afero.ReadFile(fs, "_site/styles/main-print.css")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(printCSS), "display:none"))
}

func TestCompileMissingEntry(t *testing.T) {
	_, err := Compile(context.Background(), afero.NewMemMapFs(), Options{Entry: "nope.css", OutDir: "_site", Output: "main.css"})
	require.Error(t, err)
	assert.Equal(t, batch.KindMissingInput, batch.KindOf(err))
}
