package clean

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/testutil"
)

func setup(t *testing.T) (afero.Fs, *config.Config) {
	t.Helper()
	fs := testutil.CreateTestFilesystem(t, map[string]string{
		"_site/index.html":        "x",
		"_site/blog/a/index.html": "x",
		".sitepipe-cache/meta.db": "x",
		"src/index.md":            "x",
	})
	return fs, config.DefaultConfig()
}

func TestRunKeepsCache(t *testing.T) {
	fs, cfg := setup(t)
	require.NoError(t, Run(fs, cfg, false))

	testutil.AssertFileNotExists(t, fs, "_site")
	testutil.AssertFileExists(t, fs, ".sitepipe-cache/meta.db")
	testutil.AssertFileExists(t, fs, "src/index.md")

	entries, err := afero.ReadDir(fs, ".")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "_deleting_")
	}
}

func TestRunWithCache(t *testing.T) {
	fs, cfg := setup(t)
	require.NoError(t, Run(fs, cfg, true))

	testutil.AssertFileNotExists(t, fs, "_site")
	testutil.AssertFileNotExists(t, fs, ".sitepipe-cache")
	testutil.AssertFileExists(t, fs, "src/index.md")
}

func TestRunMissingOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.NoError(t, Run(fs, config.DefaultConfig(), true))
}
