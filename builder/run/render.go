package run

import (
	"context"
	"html/template"
	"runtime"
	"strings"
	"time"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/generators"
	"github.com/pustelto/sitepipe/builder/metrics"
	"github.com/pustelto/sitepipe/builder/models"
	mdParser "github.com/pustelto/sitepipe/builder/parser"
	"github.com/pustelto/sitepipe/builder/renderer"
)

// buildState is shared, read-only, by every page of one build.
type buildState struct {
	site        models.Site
	collections *models.Collections
	data        map[string]interface{}
	assets      map[string]string
	images      *generators.ResponsiveImages
	buildTime   time.Time
}

type renderedBody struct {
	content   template.HTML
	toc       []models.TOCEntry
	wordCount int
}

func (b *Builder) pageData(st *buildState, p *models.Page) models.PageData {
	return models.PageData{
		Site:        st.site,
		Page:        p,
		Collections: st.collections,
		Content:     p.Content,
		Data:        st.data,
		Meta:        p.Data,
		Assets:      st.assets,
		BuildTime:   st.buildTime,
	}
}

func (b *Builder) bodyFuncs(st *buildState, p *models.Page) template.FuncMap {
	sc := &renderer.Shortcodes{
		Site:      b.cfg.Site,
		Images:    st.images,
		Sizes:     b.cfg.Images.Sizes,
		Qualities: b.cfg.Video.Qualities,
		InputDir:  b.cfg.Paths.Input,
		OutputDir: b.cfg.Paths.Output,
		Page:      p,
	}
	funcs := renderer.Filters(b.cfg.Site)
	for name, fn := range sc.Funcs() {
		funcs[name] = fn
	}
	return funcs
}

// renderPages renders every page body, then wraps the successful ones in
// their layouts and writes them. Bodies render against the front matter of
// other pages only; rendered fields are applied once all bodies are done.
func (b *Builder) renderPages(ctx context.Context, st *buildState, pages []*models.Page, m *metrics.BuildMetrics) *batch.Report {
	opts := batch.Options{Concurrency: runtime.NumCPU(), Kind: batch.KindExternalProcess}
	key := func(p *models.Page) string { return p.InputPath }

	results := make([]*renderedBody, len(pages))
	index := make(map[*models.Page]int, len(pages))
	for i, p := range pages {
		index[p] = i
	}

	report := batch.Run(ctx, "pages", pages, opts, key, func(_ context.Context, p *models.Page) error {
		body, err := b.renderBody(st, p)
		if err != nil {
			return pageError(p, err)
		}
		results[index[p]] = body
		return nil
	})

	var ok []*models.Page
	for i, p := range pages {
		if results[i] == nil {
			continue
		}
		p.Content = results[i].content
		p.TOC = results[i].toc
		p.WordCount = results[i].wordCount
		p.ReadingTime = ReadingTime(p.WordCount)
		ok = append(ok, p)
	}

	written := batch.Run(ctx, "pages", ok, opts, key, func(_ context.Context, p *models.Page) error {
		if p.OutputPath == "" {
			return batch.Skip("permalink: false")
		}
		if err := b.rnd.RenderPage(p.OutputPath, p.Layout, b.pageData(st, p)); err != nil {
			return pageError(p, err)
		}
		m.IncrementPagesRendered()
		m.IncrementFilesWritten()
		return nil
	})

	// Body failures and layout outcomes share one report.
	final := batch.NewReport("pages")
	for _, f := range report.Failures() {
		final.AddFailure(f.Item, f.Kind, f)
	}
	for _, s := range report.Skipped() {
		final.AddSkipped(s.Item, s.Reason)
	}
	final.Merge(written)
	return final
}

func (b *Builder) renderBody(st *buildState, p *models.Page) (*renderedBody, error) {
	body, err := renderer.ExecuteBody(p.InputPath, p.Body, b.bodyFuncs(st, p), b.pageData(st, p))
	if err != nil {
		return nil, err
	}
	if !p.IsMarkdown {
		return &renderedBody{
			content:   template.HTML(body),
			wordCount: len(strings.Fields(p.Body)),
		}, nil
	}

	res, err := mdParser.Convert(b.md, body)
	if err != nil {
		return nil, err
	}
	return &renderedBody{
		content:   template.HTML(res.HTML),
		toc:       res.TOC,
		wordCount: res.WordCount,
	}, nil
}

// pageError files err under the page, keeping any kind it already carries.
func pageError(p *models.Page, err error) error {
	kind := batch.KindOf(err)
	if kind == batch.KindUnknown {
		kind = batch.KindExternalProcess
	}
	return &batch.Error{Item: p.InputPath, Kind: kind, Err: err}
}
