package scaffold

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/run"
	"github.com/pustelto/sitepipe/builder/testutil"
)

func TestRunBuilds(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.DefaultConfig()
	cfg.Minify = false
	require.NoError(t, Run(fs, cfg, "2024-01-02"))

	report, err := run.NewBuilderWithFs(cfg, testutil.Logger(), fs, fs).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failures())

	home, err := afero.ReadFile(fs, "_site/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(home), `<a href="/blog/hello-world/">Hello World</a>`)

	post, err := afero.ReadFile(fs, "_site/blog/hello-world/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(post), "<h1>Hello World</h1>")

	for _, p := range []string{"_site/styles/main.css", "_site/js/analytics.js", "_site/404.html"} {
		testutil.AssertFileExists(t, fs, p)
	}
}

func TestRunKeepsExistingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.DefaultConfig()
	require.NoError(t, afero.WriteFile(fs, "sitepipe.yaml", []byte("site:\n  title: Mine\n"), 0644))

	require.NoError(t, Run(fs, cfg, "2024-01-02"))

	data, err := afero.ReadFile(fs, "sitepipe.yaml")
	require.NoError(t, err)
	assert.Equal(t, "site:\n  title: Mine\n", string(data))
}
