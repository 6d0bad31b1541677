package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
)

const aferoNamespace = "afero"

// resolveSuffixes are tried, in order, for imports written without an
// extension.
var resolveSuffixes = []string{"", ".js", ".mjs", ".ts", ".css", "/index.js", "/index.ts"}

var loaders = map[string]api.Loader{
	".js":   api.LoaderJS,
	".mjs":  api.LoaderJS,
	".cjs":  api.LoaderJS,
	".jsx":  api.LoaderJSX,
	".ts":   api.LoaderTS,
	".tsx":  api.LoaderTSX,
	".css":  api.LoaderCSS,
	".json": api.LoaderJSON,
}

// AferoPlugin makes esbuild read every module from fsys instead of the
// process filesystem. Remote imports and url() references stay external, so
// fonts and images are left for the passthrough copy.
func AferoPlugin(fsys afero.Fs) api.Plugin {
	return api.Plugin{
		Name: "afero",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveCSSURLToken || IsRemote(args.Path) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}

				// PluginData carries the importer's directory within fsys.
				dir, _ := args.PluginData.(string)
				var candidates []string
				switch {
				case args.Kind == api.ResolveEntryPoint || filepath.IsAbs(args.Path):
					candidates = []string{filepath.Clean(args.Path)}
				case strings.HasPrefix(args.Path, "."):
					candidates = []string{filepath.Join(dir, args.Path)}
				default:
					// Bare specifiers resolve next to the importer first, then
					// from node_modules.
					candidates = []string{
						filepath.Join(dir, args.Path),
						filepath.Join("node_modules", args.Path),
					}
				}

				for _, c := range candidates {
					if p, ok := resolveFile(fsys, c); ok {
						return api.OnResolveResult{Path: p, Namespace: aferoNamespace}, nil
					}
				}
				return api.OnResolveResult{}, fmt.Errorf("cannot resolve %q from %s", args.Path, args.Importer)
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: aferoNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				data, err := afero.ReadFile(fsys, args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents := string(data)
				loader, ok := loaders[strings.ToLower(filepath.Ext(args.Path))]
				if !ok {
					loader = api.LoaderText
				}
				return api.OnLoadResult{
					Contents:   &contents,
					PluginData: filepath.Dir(args.Path),
					Loader:     loader,
				}, nil
			})
		},
	}
}

func resolveFile(fsys afero.Fs, base string) (string, bool) {
	for _, suffix := range resolveSuffixes {
		p := base + suffix
		if info, err := fsys.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// IsRemote reports whether an import points outside the site.
func IsRemote(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") ||
		strings.HasPrefix(lower, "data:")
}

// EsbuildError folds esbuild messages into one error, or returns nil.
func EsbuildError(msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
		} else {
			lines = append(lines, m.Text)
		}
	}
	return fmt.Errorf("esbuild failed with %d errors: %s", len(msgs), strings.Join(lines, "; "))
}
