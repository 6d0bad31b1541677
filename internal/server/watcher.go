package server

import (
	"context"
	"fmt"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/internal/watch"
)

// Rebuilder is the part of the site builder the dev server drives.
type Rebuilder interface {
	Build(ctx context.Context) (*batch.Report, error)
	BuildChanged(ctx context.Context, path string) (*batch.Report, error)
}

// rebuild runs after a debounced batch of source changes. A single changed
// file gets a targeted rebuild; several run a full build.
func (s *Server) rebuild(ctx context.Context, paths []string) {
	var (
		report *batch.Report
		err    error
	)
	if len(paths) == 1 {
		report, err = s.builder.BuildChanged(ctx, paths[0])
	} else {
		fmt.Printf("🔄 %d files changed, rebuilding...\n", len(paths))
		report, err = s.builder.Build(ctx)
	}
	if err != nil {
		s.logger.Error("Rebuild failed", "error", err)
		return
	}
	if report != nil {
		report.Log(s.logger)
	}
	s.hub.broadcast()
}

func (s *Server) startWatcher(ctx context.Context) (<-chan struct{}, error) {
	ignore := []string{s.cfg.Paths.Output, s.cfg.Paths.Cache}
	w, err := watch.New([]string{s.cfg.Paths.Input}, ignore, s.cfg.Server.DebounceDuration, s.logger, func(paths []string) {
		s.rebuild(ctx, paths)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(ctx); err != nil {
			s.logger.Warn("Watcher stopped", "error", err)
		}
	}()
	return done, nil
}
