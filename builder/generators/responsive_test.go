package generators

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/config"
)

func TestTargetWidths(t *testing.T) {
	widths := []int{296, 608, 888, 1216, 1824}

	assert.Equal(t, []int{296, 608, 888}, TargetWidths(widths, 1000))
	assert.Equal(t, widths, TargetWidths(widths, 4000))
	assert.Equal(t, []int{200}, TargetWidths(widths, 200))
}

func writePNG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func TestResponsiveImagesGenerate(t *testing.T) {
	src := afero.NewMemMapFs()
	dest := afero.NewMemMapFs()
	writePNG(t, src, "src/blog/post/cat.png", 700, 350)

	cfg := config.ImagesConfig{Widths: []int{296, 608, 888}, Quality: 80}
	r := NewResponsiveImages(src, dest, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	set, err := r.Generate("src/blog/post/cat.png", "_site/blog/post", "./")
	require.NoError(t, err)

	require.Len(t, set.JPEG, 2)
	require.Len(t, set.WebP, 2)
	assert.Equal(t, "./cat-296.jpeg", set.Smallest().URL)
	assert.Equal(t, 148, set.Smallest().Height)
	assert.Equal(t, 608, set.WebP[1].Width)

	for _, p := range []string{
		"_site/blog/post/cat-296.jpeg",
		"_site/blog/post/cat-608.jpeg",
		"_site/blog/post/cat-296.webp",
		"_site/blog/post/cat-608.webp",
	} {
		exists, err := afero.Exists(dest, p)
		require.NoError(t, err)
		assert.True(t, exists, p)
	}
}

func TestResponsiveImagesMissingSource(t *testing.T) {
	r := NewResponsiveImages(afero.NewMemMapFs(), afero.NewMemMapFs(), config.ImagesConfig{Widths: []int{296}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := r.Generate("missing.png", "_site", "./")
	assert.Error(t, err)
}
