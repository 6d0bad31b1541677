// Package run is the page engine: it turns the source tree into the output
// directory and runs the build steps around it.
package run

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/metrics"
	mdParser "github.com/pustelto/sitepipe/builder/parser"
	"github.com/pustelto/sitepipe/builder/renderer"
	"github.com/pustelto/sitepipe/builder/utils"
)

// Hook runs after every output file is written.
type Hook func(ctx context.Context) (*batch.Report, error)

type namedHook struct {
	name string
	fn   Hook
}

// Builder maintains the state for site builds
type Builder struct {
	cfg      *config.Config
	logger   *slog.Logger
	md       goldmark.Markdown
	layouts  *renderer.Layouts
	rnd      *renderer.Renderer
	SourceFs afero.Fs
	DestFs   afero.Fs

	mu      sync.Mutex
	hooks   []namedHook
	metrics *metrics.BuildMetrics
}

// NewBuilder reads sources from and writes output to the working directory.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	return NewBuilderWithFs(cfg, logger, afero.NewOsFs(), afero.NewOsFs())
}

// NewBuilderWithFs is NewBuilder over explicit filesystems.
func NewBuilderWithFs(cfg *config.Config, logger *slog.Logger, sourceFs, destFs afero.Fs) *Builder {
	layouts := renderer.NewLayouts(
		sourceFs,
		cfg.Paths.LayoutsDir(),
		filepath.Join(cfg.Paths.Input, cfg.Paths.Includes),
		renderer.Filters(cfg.Site),
	)
	rnd := renderer.New(layouts, destFs, logger)
	if cfg.Minify {
		rnd.AddTransform("htmlmin", utils.MinifyHTML)
	}

	return &Builder{
		cfg:      cfg,
		logger:   logger,
		md:       mdParser.New(cfg.Markdown),
		layouts:  layouts,
		rnd:      rnd,
		SourceFs: sourceFs,
		DestFs:   destFs,
	}
}

// Config returns the builder's configuration
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Renderer exposes the page renderer so callers can register transforms.
func (b *Builder) Renderer() *renderer.Renderer {
	return b.rnd
}

// Metrics returns the metrics of the last build, or nil before the first.
func (b *Builder) Metrics() *metrics.BuildMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// AddHook registers fn to run after each build, in registration order.
func (b *Builder) AddHook(name string, fn Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, namedHook{name: name, fn: fn})
}

func (b *Builder) runHooks(ctx context.Context, report *batch.Report) {
	b.mu.Lock()
	hooks := append([]namedHook(nil), b.hooks...)
	b.mu.Unlock()

	for _, h := range hooks {
		b.logger.Info("Running after-build hook", "hook", h.name)
		hr, err := h.fn(ctx)
		if err != nil {
			report.AddFailure("hook:"+h.name, batch.KindExternalProcess, err)
			continue
		}
		report.Merge(hr)
	}
}
