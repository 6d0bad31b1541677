// Package critical inlines above-the-fold CSS into every built page and loads
// the full stylesheets asynchronously.
package critical

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/cache"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/stylesheet"
	"github.com/pustelto/sitepipe/builder/utils"
)

// Page is one HTML file handed to an Extractor.
type Page struct {
	// Path is the file on the output filesystem, Rel the same file relative
	// to the output dir with forward slashes.
	Path   string
	Rel    string
	HTML   []byte
	Width  int
	Height int
}

// Extractor returns the CSS needed to render p above the fold.
type Extractor interface {
	Extract(ctx context.Context, p Page) (string, error)
}

type Inliner struct {
	fs        afero.Fs
	cfg       config.CriticalConfig
	extractor Extractor
	cache     *cache.Manager
	logger    *slog.Logger

	// guards stylesheet edits when Extract is on
	cssMu sync.Mutex
}

// New returns an Inliner over the files in cfg.Dir. c may be nil.
func New(fs afero.Fs, cfg config.CriticalConfig, extractor Extractor, c *cache.Manager, logger *slog.Logger) *Inliner {
	return &Inliner{fs: fs, cfg: cfg, extractor: extractor, cache: c, logger: logger}
}

// Pages lists the HTML files to process, relative to cfg.Dir.
func (in *Inliner) Pages() ([]string, error) {
	include := in.cfg.Include
	if include == "" {
		include = "**/*.html"
	}
	g, err := utils.CompileGlob(include)
	if err != nil {
		return nil, err
	}
	var pages []string
	err = utils.WalkFiles(in.fs, in.cfg.Dir, in.cfg.ExcludeDirs, func(p string, _ fs.FileInfo) error {
		rel, err := utils.ToSlashRel(in.cfg.Dir, p)
		if err != nil {
			return err
		}
		// A bare "*.html" filter applies to the file name at any depth.
		if g.Match(rel) || (!strings.Contains(include, "/") && g.Match(path.Base(rel))) {
			pages = append(pages, rel)
		}
		return nil
	})
	return pages, err
}

// Run inlines critical CSS into every page. The extractor is closed once at
// the end when it implements io.Closer, whether or not pages failed.
func (in *Inliner) Run(ctx context.Context) (*batch.Report, error) {
	if closer, ok := in.extractor.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				in.logger.Warn("Failed to close extractor", "error", err)
			}
		}()
	}

	pages, err := in.Pages()
	if err != nil {
		return nil, batch.Wrap(in.cfg.Dir, batch.KindFilesystem, err)
	}

	opts := batch.Options{
		Concurrency: in.cfg.Concurrency,
		FailFast:    in.cfg.FailFast,
		Kind:        batch.KindExternalProcess,
	}
	report := batch.Run(ctx, "critical", pages, opts, func(rel string) string { return rel }, in.processPage)
	return report, nil
}

func (in *Inliner) processPage(ctx context.Context, rel string) error {
	file := filepath.Join(in.cfg.Dir, filepath.FromSlash(rel))
	doc, err := afero.ReadFile(in.fs, file)
	if err != nil {
		return batch.Wrap(rel, batch.KindFilesystem, err)
	}
	d, err := parseDoc(doc)
	if err != nil {
		return batch.Wrap(rel, batch.KindFilesystem, fmt.Errorf("parse html: %w", err))
	}
	if isInlined(d) {
		return batch.Skip("critical CSS already inlined")
	}

	hrefs := stylesheetHrefs(d)
	if len(hrefs) == 0 {
		return batch.Skip("no stylesheets")
	}

	key := in.cacheKey(doc, hrefs)
	if in.cache != nil {
		if cached, ok, err := in.cache.Lookup(cache.NamespaceCritical, key); err == nil && ok {
			in.logger.Debug("Critical CSS cache hit", "page", rel)
			return in.write(rel, file, cached)
		}
	}

	timeout := in.cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	css, err := in.extractor.Extract(pageCtx, Page{
		Path:   file,
		Rel:    rel,
		HTML:   doc,
		Width:  in.cfg.Width,
		Height: in.cfg.Height,
	})
	if err != nil {
		return batch.Wrap(rel, batch.KindExternalProcess, err)
	}
	if in.cfg.Minify {
		minified, err := utils.MinifyCSS([]byte(css))
		if err != nil {
			return batch.Wrap(rel, batch.KindExternalProcess, fmt.Errorf("minify: %w", err))
		}
		css = string(minified)
	}

	out, err := inline(d, css)
	if err != nil {
		return batch.Wrap(rel, batch.KindExternalProcess, err)
	}
	if in.cfg.Extract {
		if err := in.extractRules(rel, hrefs, css); err != nil {
			return err
		}
	}
	if in.cache != nil {
		if err := in.cache.Save(cache.NamespaceCritical, key, rel, out); err != nil {
			in.logger.Warn("Failed to cache critical CSS", "page", rel, "error", err)
		}
	}
	return in.write(rel, file, out)
}

func (in *Inliner) write(rel, file string, out []byte) error {
	if err := utils.WriteFileAtomic(in.fs, file, out); err != nil {
		return batch.Wrap(rel, batch.KindFilesystem, err)
	}
	return nil
}

// cacheKey covers the page, every local stylesheet it links and the viewport.
func (in *Inliner) cacheKey(doc []byte, hrefs []string) string {
	parts := [][]byte{
		doc,
		[]byte(strconv.Itoa(in.cfg.Width) + "x" + strconv.Itoa(in.cfg.Height)),
		[]byte(strconv.FormatBool(in.cfg.Minify)),
	}
	for _, href := range hrefs {
		if p, ok := in.localPath(href); ok {
			if data, err := afero.ReadFile(in.fs, p); err == nil {
				parts = append(parts, data)
			}
		}
	}
	return utils.HashBytes(parts...)
}

// localPath maps a root-relative stylesheet href onto the output dir.
func (in *Inliner) localPath(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Host != "" || u.Scheme != "" || !strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	return filepath.Join(in.cfg.Dir, filepath.FromSlash(path.Clean(u.Path))), true
}

// ruleKey is the minified text of n. Minifying both sides evens out the way
// browsers reserialize rules, such as rgb() colors and spacing.
func ruleKey(n *stylesheet.Node) string {
	raw := stylesheet.Render([]*stylesheet.Node{n})
	if out, err := utils.MinifyCSS(raw); err == nil {
		return string(out)
	}
	return string(raw)
}

func isMedia(n *stylesheet.Node) bool {
	return n.Type == stylesheet.AtRuleNode && strings.EqualFold(n.Name, "media") && len(n.Children) > 0
}

// mediaRule is child alone inside a copy of its @media block.
func mediaRule(media, child *stylesheet.Node) *stylesheet.Node {
	return &stylesheet.Node{
		Type:     stylesheet.AtRuleNode,
		Name:     media.Name,
		Prelude:  media.Prelude,
		HasBlock: true,
		Children: []*stylesheet.Node{child},
	}
}

func ruleKeys(nodes []*stylesheet.Node) map[string]bool {
	keys := map[string]bool{}
	for _, n := range nodes {
		if isMedia(n) {
			for _, c := range n.Children {
				keys[ruleKey(mediaRule(n, c))] = true
			}
			continue
		}
		keys[ruleKey(n)] = true
	}
	return keys
}

// withoutRules drops the nodes whose key is in seen. Rules inside @media are
// matched one by one and emptied blocks are dropped.
func withoutRules(nodes []*stylesheet.Node, seen map[string]bool) ([]*stylesheet.Node, bool) {
	changed := false
	kept := make([]*stylesheet.Node, 0, len(nodes))
	for _, n := range nodes {
		if !isMedia(n) {
			if seen[ruleKey(n)] {
				changed = true
				continue
			}
			kept = append(kept, n)
			continue
		}
		children := make([]*stylesheet.Node, 0, len(n.Children))
		for _, c := range n.Children {
			if !seen[ruleKey(mediaRule(n, c))] {
				children = append(children, c)
			}
		}
		if len(children) == len(n.Children) {
			kept = append(kept, n)
			continue
		}
		changed = true
		if len(children) > 0 {
			m := *n
			m.Children = children
			kept = append(kept, &m)
		}
	}
	return kept, changed
}

// extractRules removes the inlined rules from the page's local stylesheets.
func (in *Inliner) extractRules(rel string, hrefs []string, css string) error {
	inlined, err := stylesheet.Parse([]byte(css))
	if err != nil {
		return batch.Wrap(rel, batch.KindExternalProcess, err)
	}
	seen := ruleKeys(inlined)

	in.cssMu.Lock()
	defer in.cssMu.Unlock()
	for _, href := range hrefs {
		p, ok := in.localPath(href)
		if !ok {
			continue
		}
		data, err := afero.ReadFile(in.fs, p)
		if err != nil {
			continue
		}
		nodes, err := stylesheet.Parse(data)
		if err != nil {
			return batch.Wrap(rel, batch.KindExternalProcess, err)
		}
		kept, changed := withoutRules(nodes, seen)
		if !changed {
			continue
		}
		if err := utils.WriteFileAtomic(in.fs, p, stylesheet.Render(kept)); err != nil {
			return batch.Wrap(rel, batch.KindFilesystem, err)
		}
	}
	return nil
}
