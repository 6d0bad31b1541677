package run

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/generators"
	"github.com/pustelto/sitepipe/builder/metrics"
	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/scripts"
	"github.com/pustelto/sitepipe/builder/styles"
)

// Build executes a single build pass. Styles and scripts are compiled
// first and abort the build on error; page, passthrough and hook failures
// are collected in the report.
func (b *Builder) Build(ctx context.Context) (*batch.Report, error) {
	cfg := b.cfg
	m := metrics.NewBuildMetrics()
	defer func() {
		m.RecordEnd()
		b.mu.Lock()
		b.metrics = m
		b.mu.Unlock()
	}()

	env := "development"
	if cfg.Production {
		env = "production"
	}
	fmt.Printf("🔨 Building site... (%s)\n", env)

	report := batch.NewReport("build")
	assets := map[string]string{}

	if err := b.compileStyles(ctx, m, assets); err != nil {
		return report, err
	}
	if err := b.bundleScripts(ctx, m, assets); err != nil {
		return report, err
	}

	done := m.StartPhase("load")
	pages, err := b.loadPages()
	if err != nil {
		done()
		return report, batch.Wrap(cfg.Paths.Input, batch.KindFilesystem, err)
	}
	data, err := b.loadGlobalData()
	done()
	if err != nil {
		return report, batch.Wrap(cfg.Paths.Data, batch.KindFilesystem, err)
	}
	collections := BuildCollections(pages)
	b.logger.Debug("Loaded pages", "pages", len(pages), "posts", len(collections.Blogposts))

	st := &buildState{
		site: models.Site{
			Title:       cfg.Site.Title,
			URL:         cfg.Site.URL,
			Description: cfg.Site.Description,
			Author:      cfg.Site.Author,
			Language:    cfg.Site.Language,
			Year:        buildYear(),
		},
		collections: collections,
		data:        data,
		assets:      assets,
		images:      generators.NewResponsiveImages(b.SourceFs, b.DestFs, cfg.Images, b.logger),
		buildTime:   time.Now(),
	}

	done = m.StartPhase("render")
	report.Merge(b.renderPages(ctx, st, pages, m))
	done()

	done = m.StartPhase("passthrough")
	report.Merge(b.copyPassthrough(m))
	done()

	done = m.StartPhase("feed")
	if err := b.writeFeed(collections); err != nil {
		report.AddFailure(feedPath, batch.KindFilesystem, err)
	} else {
		m.IncrementFilesWritten()
	}
	if err := b.writeSocialManifest(collections); err != nil {
		report.AddFailure(cfg.Social.Manifest, batch.KindFilesystem, err)
	} else {
		m.IncrementFilesWritten()
	}
	done()

	done = m.StartPhase("hooks")
	b.runHooks(ctx, report)
	done()

	m.RecordEnd()
	m.Print()
	if report.Failed() {
		fmt.Printf("⚠️  Build finished with %d failure(s).\n", len(report.Failures()))
	} else {
		fmt.Println("✅ Build Complete.")
	}
	return report, nil
}

func (b *Builder) compileStyles(ctx context.Context, m *metrics.BuildMetrics, assets map[string]string) error {
	if b.cfg.Styles.Entry == "" {
		return nil
	}
	done := m.StartPhase("styles")
	defer done()

	opts := styles.OptionsFromConfig(b.cfg, b.logger)
	opts.DestFs = b.DestFs
	res, err := styles.Compile(ctx, b.SourceFs, opts)
	if err != nil {
		return fmt.Errorf("styles: %w", err)
	}
	for range res.Files {
		m.IncrementFilesWritten()
	}
	assets["css"] = "/" + filepath.ToSlash(b.cfg.Styles.Output)
	fmt.Printf("   🎨 Compiled %d stylesheet(s), %d bytes\n", len(res.Files), res.Bytes)
	return nil
}

func (b *Builder) bundleScripts(ctx context.Context, m *metrics.BuildMetrics, assets map[string]string) error {
	if len(b.cfg.Scripts.Entries) == 0 && b.cfg.Scripts.CopyDir == "" {
		return nil
	}
	done := m.StartPhase("scripts")
	defer done()

	opts := scripts.OptionsFromConfig(b.cfg, b.logger)
	opts.DestFs = b.DestFs
	res, err := scripts.Bundle(ctx, b.SourceFs, opts)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	for name := range b.cfg.Scripts.Entries {
		assets["js/"+name] = "/js/" + name + ".js"
	}
	for range append(res.Bundles, res.Copied...) {
		m.IncrementFilesWritten()
	}
	fmt.Printf("   📦 Bundled %d script(s), copied %d\n", len(res.Bundles), len(res.Copied))
	return nil
}

// BuildChanged rebuilds after path changed: a stylesheet only recompiles
// styles, a script only rebundles scripts and anything else runs a full
// build.
func (b *Builder) BuildChanged(ctx context.Context, path string) (*batch.Report, error) {
	m := metrics.NewBuildMetrics()
	switch b.classify(path) {
	case changeStyle:
		fmt.Printf("🎨 Style change: %s\n", path)
		return batch.NewReport("styles"), b.compileStyles(ctx, m, map[string]string{})
	case changeScript:
		fmt.Printf("📦 Script change: %s\n", path)
		return batch.NewReport("scripts"), b.bundleScripts(ctx, m, map[string]string{})
	}
	return b.Build(ctx)
}

type changeKind int

const (
	changeOther changeKind = iota
	changeStyle
	changeScript
)

func (b *Builder) classify(path string) changeKind {
	p := filepath.ToSlash(filepath.Clean(path))
	switch strings.ToLower(filepath.Ext(p)) {
	case ".css":
		if b.cfg.Styles.Entry != "" && strings.HasPrefix(p, filepath.ToSlash(filepath.Dir(b.cfg.Styles.Entry))+"/") {
			return changeStyle
		}
	case ".js", ".mjs", ".ts":
		if b.cfg.Scripts.CopyDir != "" && strings.HasPrefix(p, filepath.ToSlash(b.cfg.Scripts.CopyDir)+"/") {
			return changeScript
		}
		for _, entry := range b.cfg.Scripts.Entries {
			if strings.HasPrefix(p, filepath.ToSlash(filepath.Dir(entry))+"/") {
				return changeScript
			}
		}
	}
	return changeOther
}
