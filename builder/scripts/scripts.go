// Package scripts bundles the site's JavaScript entries with esbuild and
// copies the standalone scripts next to them.
package scripts

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

type Options struct {
	// Entries maps an output name to its source file.
	Entries map[string]string
	CopyDir string
	OutDir  string
	Target  string
	DestFs  afero.Fs
	Logger  *slog.Logger
}

func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Entries: cfg.Scripts.Entries,
		CopyDir: cfg.Scripts.CopyDir,
		OutDir:  cfg.Paths.Output,
		Target:  cfg.Scripts.Target,
		Logger:  logger,
	}
}

type Result struct {
	Bundles []string
	Copied  []string
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"esnext": api.ESNext,
}

func target(name string) api.Target {
	if t, ok := targets[strings.ToLower(name)]; ok {
		return t
	}
	return api.ES2017
}

// Bundle writes <OutDir>/js/<name>.js for every entry, then flattens CopyDir
// into <OutDir>/js. Copied .js files are minified, anything else is copied
// verbatim.
func Bundle(ctx context.Context, srcFs afero.Fs, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	destFs := opts.DestFs
	if destFs == nil {
		destFs = srcFs
	}
	jsDir := filepath.Join(opts.OutDir, "js")
	result := &Result{}

	names := make([]string, 0, len(opts.Entries))
	for name := range opts.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := opts.Entries[name]
		if _, err := srcFs.Stat(entry); err != nil {
			return result, batch.Wrap(entry, batch.KindMissingInput, err)
		}
		out := filepath.Join(jsDir, name+".js")
		build := api.Build(api.BuildOptions{
			EntryPoints:       []string{entry},
			Bundle:            true,
			Write:             false,
			Outfile:           out,
			Format:            api.FormatIIFE,
			Platform:          api.PlatformBrowser,
			Target:            target(opts.Target),
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
			LogLevel:          api.LogLevelSilent,
			Plugins:           []api.Plugin{utils.AferoPlugin(srcFs)},
		})
		if err := utils.EsbuildError(build.Errors); err != nil {
			return result, batch.Wrap(entry, batch.KindExternalProcess, err)
		}
		for _, f := range build.OutputFiles {
			if !strings.HasSuffix(f.Path, ".js") {
				continue
			}
			if err := utils.WriteFile(destFs, out, f.Contents); err != nil {
				return result, batch.Wrap(out, batch.KindFilesystem, err)
			}
			result.Bundles = append(result.Bundles, out)
		}
		opts.Logger.Debug("Bundled script", "entry", entry, "output", out)
	}

	if opts.CopyDir == "" {
		return result, nil
	}
	if _, err := srcFs.Stat(opts.CopyDir); err != nil {
		return result, nil
	}

	seen := map[string]string{}
	err := utils.WalkFiles(srcFs, opts.CopyDir, nil, func(p string, _ fs.FileInfo) error {
		out := filepath.Join(jsDir, filepath.Base(p))
		if prev, ok := seen[out]; ok {
			opts.Logger.Warn("Flattened script overwrites another", "file", p, "previous", prev)
		}
		seen[out] = p

		if strings.ToLower(filepath.Ext(p)) != ".js" {
			if err := utils.CopyFile(srcFs, destFs, p, out); err != nil {
				return batch.Wrap(p, batch.KindFilesystem, err)
			}
			result.Copied = append(result.Copied, out)
			return nil
		}

		code, err := afero.ReadFile(srcFs, p)
		if err != nil {
			return batch.Wrap(p, batch.KindFilesystem, err)
		}
		minified, err := Minify(code, opts.Target)
		if err != nil {
			return batch.Wrap(p, batch.KindExternalProcess, fmt.Errorf("%s: %w", p, err))
		}
		if err := utils.WriteFile(destFs, out, minified); err != nil {
			return batch.Wrap(out, batch.KindFilesystem, err)
		}
		result.Copied = append(result.Copied, out)
		return nil
	})
	return result, err
}

// Minify runs a single script through esbuild's transform API.
func Minify(code []byte, targetName string) ([]byte, error) {
	res := api.Transform(string(code), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            target(targetName),
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if err := utils.EsbuildError(res.Errors); err != nil {
		return nil, err
	}
	return res.Code, nil
}
