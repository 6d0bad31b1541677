// Package styles compiles the site stylesheet: @import bundling and nesting
// via esbuild, then custom media, strip() units, optional media query
// extraction and minification.
package styles

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/stylesheet"
	"github.com/pustelto/sitepipe/builder/utils"
)

// engines have no native nesting support, so esbuild flattens nested rules.
var engines = []api.Engine{
	{Name: api.EngineChrome, Version: "100"},
	{Name: api.EngineFirefox, Version: "100"},
	{Name: api.EngineSafari, Version: "15"},
}

type Options struct {
	Entry  string
	OutDir string
	// Output is relative to OutDir.
	Output       string
	MediaQueries map[string]string
	Minify       bool
	// DestFs defaults to the source filesystem.
	DestFs afero.Fs
	Logger *slog.Logger
}

// OptionsFromConfig maps the styles section onto compiler options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Entry:        cfg.Styles.Entry,
		OutDir:       cfg.Paths.Output,
		Output:       cfg.Styles.Output,
		MediaQueries: cfg.Styles.MediaQueries,
		Minify:       cfg.Styles.Minify,
		Logger:       logger,
	}
}

// Result lists what Compile wrote.
type Result struct {
	// Files are output paths, main stylesheet first.
	Files       []string
	Bytes       int
	CustomMedia int
}

// Compile builds opts.Entry into opts.Output and any media query files
// beside it.
func Compile(ctx context.Context, fs afero.Fs, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	destFs := opts.DestFs
	if destFs == nil {
		destFs = fs
	}
	if _, err := fs.Stat(opts.Entry); err != nil {
		return nil, batch.Wrap(opts.Entry, batch.KindMissingInput, err)
	}

	bundled, err := bundle(fs, opts.Entry)
	if err != nil {
		return nil, err
	}

	nodes, err := stylesheet.Parse(bundled)
	if err != nil {
		return nil, batch.Wrap(opts.Entry, batch.KindExternalProcess, err)
	}
	nodes, count := ApplyCustomMedia(nodes)
	StripUnits(nodes)

	outPath := filepath.Join(opts.OutDir, filepath.FromSlash(opts.Output))
	outputs := []struct {
		path  string
		nodes []*stylesheet.Node
	}{{path: outPath}}

	suffixes := make([]string, 0, len(opts.MediaQueries))
	for suffix := range opts.MediaQueries {
		suffixes = append(suffixes, suffix)
	}
	sort.Strings(suffixes)
	for _, suffix := range suffixes {
		var moved []*stylesheet.Node
		nodes, moved = ExtractMedia(nodes, opts.MediaQueries[suffix])
		if len(moved) == 0 {
			opts.Logger.Warn("No @media blocks matched", "query", opts.MediaQueries[suffix])
			continue
		}
		outputs = append(outputs, struct {
			path  string
			nodes []*stylesheet.Node
		}{path: mediaOutputPath(outPath, suffix), nodes: moved})
	}
	outputs[0].nodes = nodes

	result := &Result{CustomMedia: count}
	for _, out := range outputs {
		data := stylesheet.Render(out.nodes)
		if opts.Minify {
			if data, err = utils.MinifyCSS(data); err != nil {
				return nil, batch.Wrap(out.path, batch.KindExternalProcess, fmt.Errorf("minify: %w", err))
			}
		}
		if err := utils.WriteFile(destFs, out.path, data); err != nil {
			return nil, batch.Wrap(out.path, batch.KindFilesystem, err)
		}
		result.Files = append(result.Files, out.path)
		result.Bytes += len(data)
	}

	opts.Logger.Debug("Compiled styles", "entry", opts.Entry, "files", len(result.Files), "bytes", result.Bytes)
	return result, nil
}

func bundle(fs afero.Fs, entry string) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Outfile:     "bundle.css",
		Engines:     engines,
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{utils.AferoPlugin(fs)},
	})
	if err := utils.EsbuildError(result.Errors); err != nil {
		return nil, batch.Wrap(entry, batch.KindExternalProcess, err)
	}
	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".css") {
			return f.Contents, nil
		}
	}
	return nil, batch.Errorf(entry, batch.KindExternalProcess, "esbuild produced no stylesheet")
}

func mediaOutputPath(main, suffix string) string {
	ext := path.Ext(main)
	return strings.TrimSuffix(main, ext) + "-" + suffix + ext
}

var customMediaRef = regexp.MustCompile(`\(\s*(--[\w-]+)\s*\)`)

// ApplyCustomMedia removes @custom-media definitions and substitutes
// (--name) references in @media preludes. It returns the remaining nodes and
// the number of definitions found. Unknown references are left alone.
func ApplyCustomMedia(nodes []*stylesheet.Node) ([]*stylesheet.Node, int) {
	defs := map[string]string{}
	kept := nodes[:0]
	for _, n := range nodes {
		if n.Type == stylesheet.AtRuleNode && strings.EqualFold(n.Name, "custom-media") {
			name, query, ok := strings.Cut(strings.TrimSpace(n.Prelude), " ")
			if ok && strings.HasPrefix(name, "--") {
				defs[name] = strings.TrimSpace(query)
			}
			continue
		}
		kept = append(kept, n)
	}
	if len(defs) == 0 {
		return kept, 0
	}

	stylesheet.Walk(kept, func(n *stylesheet.Node) bool {
		if n.Type == stylesheet.AtRuleNode && strings.EqualFold(n.Name, "media") {
			n.Prelude = customMediaRef.ReplaceAllStringFunc(n.Prelude, func(ref string) string {
				name := customMediaRef.FindStringSubmatch(ref)[1]
				if q, ok := defs[name]; ok {
					return q
				}
				return ref
			})
		}
		return true
	})
	return kept, len(defs)
}

var stripRe = regexp.MustCompile(`strip\(\s*(-?(?:\d+\.?\d*|\.\d+))[a-zA-Z%]*\s*\)`)

// StripUnits rewrites strip(10px) to 10 in every declaration value.
func StripUnits(nodes []*stylesheet.Node) {
	stylesheet.Walk(nodes, func(n *stylesheet.Node) bool {
		for i, d := range n.Declarations {
			if strings.Contains(d.Value, "strip(") {
				n.Declarations[i].Value = stripRe.ReplaceAllString(d.Value, "$1")
			}
		}
		return true
	})
}

// ExtractMedia moves top-level @media blocks whose prelude equals query out
// of nodes. Whitespace and case are ignored when comparing.
func ExtractMedia(nodes []*stylesheet.Node, query string) (kept, moved []*stylesheet.Node) {
	want := normalizeQuery(query)
	for _, n := range nodes {
		if n.Type == stylesheet.AtRuleNode && strings.EqualFold(n.Name, "media") && normalizeQuery(n.Prelude) == want {
			moved = append(moved, n)
			continue
		}
		kept = append(kept, n)
	}
	return kept, moved
}

func normalizeQuery(q string) string {
	q = strings.ToLower(strings.Join(strings.Fields(q), " "))
	q = strings.ReplaceAll(q, "( ", "(")
	q = strings.ReplaceAll(q, " )", ")")
	return strings.ReplaceAll(q, ": ", ":")
}
