package stylesheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
@charset "utf-8";
/* comment */
:root { --gap: 1rem }
.a, .b > p { color: red; margin: 0 auto !important }
@media (min-width: 600px) {
  .a { color: blue }
}
@font-face { font-family: "Inter"; src: url(inter.woff2) format("woff2") }
@keyframes spin { from { transform: rotate(0deg) } to { transform: rotate(360deg) } }
`

func TestParseTree(t *testing.T) {
	nodes, err := Parse([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, nodes, 6)

	assert.Equal(t, AtRuleNode, nodes[0].Type)
	assert.Equal(t, "charset", nodes[0].Name)
	assert.False(t, nodes[0].HasBlock)

	assert.Equal(t, ":root", nodes[1].Selector)
	require.Len(t, nodes[1].Declarations, 1)
	assert.Equal(t, Declaration{Property: "--gap", Value: "1rem"}, nodes[1].Declarations[0])

	assert.Equal(t, []string{".a", ".b>p"}, nodes[2].Selectors())
	require.Len(t, nodes[2].Declarations, 2)
	assert.Equal(t, "color", nodes[2].Declarations[0].Property)
	assert.Equal(t, "red", nodes[2].Declarations[0].Value)

	media := nodes[3]
	assert.Equal(t, "media", media.Name)
	assert.Equal(t, "(min-width:600px)", media.Prelude)
	require.Len(t, media.Children, 1)
	assert.Equal(t, ".a", media.Children[0].Selector)

	assert.Equal(t, "font-face", nodes[4].Name)
	assert.Len(t, nodes[4].Declarations, 2)

	assert.Equal(t, "keyframes", nodes[5].Name)
	assert.Equal(t, "spin", nodes[5].Prelude)
	assert.Len(t, nodes[5].Children, 2)
}

func TestRenderRoundTrip(t *testing.T) {
	nodes, err := Parse([]byte(fixture))
	require.NoError(t, err)

	out := string(Render(nodes))
	assert.Contains(t, out, `@charset "utf-8";`)
	assert.Contains(t, out, "@media (min-width:600px){.a{color:blue}}")
	assert.NotContains(t, out, "comment")

	again, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, out, string(Render(again)))
}

func TestSplitSelectors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b", []string{"a", "b"}},
		{":is(a,b) c, d", []string{":is(a,b) c", "d"}},
		{`[data-x="a,b"],p`, []string{`[data-x="a,b"]`, "p"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitSelectors(tt.in), tt.in)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	nodes, err := Parse([]byte(fixture))
	require.NoError(t, err)

	var selectors []string
	Walk(nodes, func(n *Node) bool {
		if n.Type == RuleNode {
			selectors = append(selectors, n.Selector)
		}
		return n.Name != "keyframes"
	})
	assert.Equal(t, ":root|.a,.b>p|.a", strings.Join(selectors, "|"))
}
