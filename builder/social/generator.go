package social

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/cache"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

type Generator struct {
	fs       afero.Fs
	cfg      config.SocialConfig
	renderer Renderer
	cache    *cache.Manager
	logger   *slog.Logger
}

// NewGenerator returns a generator writing into cfg.OutDir. c may be nil.
func NewGenerator(fs afero.Fs, cfg config.SocialConfig, renderer Renderer, c *cache.Manager, logger *slog.Logger) *Generator {
	return &Generator{fs: fs, cfg: cfg, renderer: renderer, cache: c, logger: logger}
}

func (g *Generator) options() CardOptions {
	return CardOptions{Byline: g.cfg.Byline, Link: g.cfg.Link, Width: g.cfg.Width, Height: g.cfg.Height}
}

// Run renders every manifest entry. A manifest that cannot be read fails the
// whole run; a bad entry only fails itself. The renderer is closed at the end
// when it implements io.Closer.
func (g *Generator) Run(ctx context.Context) (*batch.Report, error) {
	if closer, ok := g.renderer.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	entries, err := LoadManifest(g.fs, g.cfg.Manifest)
	if err != nil {
		return nil, err
	}
	if err := g.fs.MkdirAll(g.cfg.OutDir, 0755); err != nil {
		return nil, batch.Wrap(g.cfg.OutDir, batch.KindFilesystem, err)
	}
	g.warnDuplicates(entries)

	opts := batch.Options{
		Concurrency: g.cfg.Concurrency,
		FailFast:    g.cfg.FailFast,
		Kind:        batch.KindExternalProcess,
	}
	key := func(e Entry) string {
		if e.Title == "" && e.Filename == "" {
			return "(untitled)"
		}
		return FileName(e)
	}
	return batch.Run(ctx, "social", entries, opts, key, g.render), nil
}

func (g *Generator) warnDuplicates(entries []Entry) {
	seen := map[string]bool{}
	for _, e := range entries {
		name := FileName(e)
		if seen[name] {
			g.logger.Warn("Social image written more than once", "file", name)
		}
		seen[name] = true
	}
}

func (g *Generator) render(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.Title) == "" {
		return batch.Errorf("", batch.KindMissingInput, "entry has no title")
	}
	name := FileName(e)
	out := filepath.Join(g.cfg.OutDir, name)

	html, err := CardHTML(e, g.options())
	if err != nil {
		return batch.Wrap(name, batch.KindExternalProcess, err)
	}
	key := utils.HashString(html, g.cfg.Renderer, strconv.Itoa(g.cfg.Scale), strconv.Itoa(g.cfg.Quality))
	if g.cache != nil {
		if data, ok, err := g.cache.Lookup(cache.NamespaceSocial, key); err == nil && ok {
			g.logger.Debug("Social image cache hit", "file", name)
			return g.write(name, out, data)
		}
	}

	data, err := g.renderer.Render(ctx, Card{
		Entry:   e,
		Options: g.options(),
		HTML:    html,
		Scale:   g.cfg.Scale,
		Quality: g.cfg.Quality,
	})
	if err != nil {
		return batch.Wrap(name, batch.KindExternalProcess, fmt.Errorf("render: %w", err))
	}
	if g.cache != nil {
		if err := g.cache.Save(cache.NamespaceSocial, key, name, data); err != nil {
			g.logger.Warn("Failed to cache social image", "file", name, "error", err)
		}
	}
	return g.write(name, out, data)
}

func (g *Generator) write(name, out string, data []byte) error {
	if err := utils.WriteFileAtomic(g.fs, out, data); err != nil {
		return batch.Wrap(name, batch.KindFilesystem, err)
	}
	return nil
}
