package csssplit

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

// maxFileWorkers bounds the concurrent page rewrites of one pattern.
const maxFileWorkers = 8

type splitter struct {
	fs         afero.Fs
	cfg        config.SplitConfig
	logger     *slog.Logger
	cssPath    string
	cssDir     string
	cssName    string
	rootFolder string

	// pages matched by more than one pattern are rewritten one at a time
	locks sync.Map
}

// Split runs every configured pattern. Patterns fail independently; the
// returned error is only set when the shared stylesheet is missing.
func Split(ctx context.Context, fs afero.Fs, cfg config.SplitConfig, logger *slog.Logger) (*batch.Report, error) {
	s := &splitter{
		fs:         fs,
		cfg:        cfg,
		logger:     logger,
		cssPath:    filepath.Join(cfg.TargetFolder, filepath.FromSlash(cfg.CSSPath)),
		cssName:    path.Base(filepath.ToSlash(cfg.CSSPath)),
		rootFolder: rootFolderName(cfg.TargetFolder),
	}
	s.cssDir = filepath.Dir(s.cssPath)

	report := batch.NewReport("split-css")
	if _, err := fs.Stat(s.cssPath); err != nil {
		return report, batch.Wrap(s.cssPath, batch.KindMissingInput, err)
	}
	s.warnCollisions()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}
	for _, pattern := range cfg.HTML {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report.AddSkipped(pattern.Path, "cancelled")
				return nil
			}
			err := s.splitPattern(gctx, pattern)
			switch {
			case err == nil:
				report.AddProcessed(pattern.Path)
			case isSkip(err):
				report.AddSkipped(pattern.Path, err.Error())
			default:
				report.AddFailure(pattern.Path, batch.KindFilesystem, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}

func rootFolderName(target string) string {
	base := filepath.Base(filepath.Clean(target))
	if base == "." {
		if wd, err := os.Getwd(); err == nil {
			return filepath.Base(wd)
		}
	}
	return base
}

func (s *splitter) chunkName(p config.Pattern) string {
	return ChunkName(path.Join(filepath.ToSlash(s.cfg.TargetFolder), p.Path), s.rootFolder, p.OutputName)
}

// warnCollisions logs patterns that would write the same chunk. The later
// pattern overwrites the earlier one.
func (s *splitter) warnCollisions() {
	seen := map[string]string{}
	for _, p := range s.cfg.HTML {
		name := s.chunkName(p)
		if prev, ok := seen[name]; ok {
			s.logger.Warn("CSS chunk written by more than one pattern", "chunk", name, "pattern", p.Path, "previous", prev)
		}
		seen[name] = p.Path
	}
}

type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

func isSkip(err error) bool {
	_, ok := err.(*skipError)
	return ok
}

func (s *splitter) splitPattern(ctx context.Context, p config.Pattern) error {
	files, err := utils.GlobFiles(s.fs, s.cfg.TargetFolder, p.Path)
	if err != nil {
		return batch.Wrap(p.Path, batch.KindFilesystem, err)
	}
	if len(files) == 0 {
		return &skipError{reason: "no matching files"}
	}

	chunk := s.chunkName(p)
	if chunk == s.cssName {
		return batch.Errorf(p.Path, batch.KindConflict, "chunk %s would replace the shared stylesheet", chunk)
	}
	chunkPath := filepath.Join(s.cssDir, chunk)
	if err := utils.CopyFile(s.fs, s.fs, s.cssPath, chunkPath); err != nil {
		return batch.Wrap(p.Path, batch.KindFilesystem, err)
	}

	docs := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFileWorkers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := s.rewritePage(file, chunk)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	css, err := afero.ReadFile(s.fs, chunkPath)
	if err != nil {
		return batch.Wrap(chunkPath, batch.KindFilesystem, err)
	}
	purged, err := Purge(css, docs)
	if err != nil {
		return batch.Wrap(chunkPath, batch.KindExternalProcess, err)
	}
	if err := utils.WriteFileAtomic(s.fs, chunkPath, purged); err != nil {
		return batch.Wrap(chunkPath, batch.KindFilesystem, err)
	}

	s.logger.Debug("Split stylesheet", "pattern", p.Path, "chunk", chunk, "pages", len(files), "bytes", len(purged))
	return nil
}

func (s *splitter) rewritePage(file, chunk string) ([]byte, error) {
	mu, _ := s.locks.LoadOrStore(file, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	content, err := afero.ReadFile(s.fs, file)
	if err != nil {
		return nil, batch.Wrap(file, batch.KindFilesystem, err)
	}
	updated, n, err := RewriteLinks(content, s.cssName, chunk)
	if err != nil {
		return nil, batch.Wrap(file, batch.KindExternalProcess, err)
	}
	if n > 0 {
		if err := utils.WriteFileAtomic(s.fs, file, updated); err != nil {
			return nil, batch.Wrap(file, batch.KindFilesystem, err)
		}
	}
	return updated, nil
}
