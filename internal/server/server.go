// Package server is the development server: it serves the output dir,
// rebuilds on source changes and tells open pages to reload.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/config"
)

type Server struct {
	cfg     *config.Config
	fs      afero.Fs
	builder Rebuilder
	logger  *slog.Logger
	hub     *hub
}

// New serves cfg.Paths.Output from fs. builder may be nil when no
// rebuilds are wanted.
func New(cfg *config.Config, fs afero.Fs, builder Rebuilder, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, fs: fs, builder: builder, logger: logger, hub: newHub()}
}

// Handler serves the output dir plus the /events reload stream.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.hub.serveSSE)
	mux.Handle("/", gzipHandler(http.HandlerFunc(s.serveFile)))
	return mux
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	rel, err := resolvePath(r.URL.Path)
	if err != nil {
		http.Error(w, "403 - Forbidden: Invalid path", http.StatusForbidden)
		return
	}
	full := filepath.Join(s.cfg.Paths.Output, filepath.FromSlash(rel))

	info, err := s.fs.Stat(full)
	if err == nil && info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		full = filepath.Join(full, "index.html")
		info, err = s.fs.Stat(full)
	}
	if err != nil {
		if os.IsNotExist(err) {
			s.notFound(w)
			return
		}
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	name := path.Base(full)
	setCacheHeaders(w, name)

	if strings.HasSuffix(name, ".html") {
		data, err := afero.ReadFile(s.fs, full)
		if err != nil {
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(injectReload(data))
		return
	}

	f, err := s.fs.Open(full)
	if err != nil {
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// notFound answers with the site's 404 page and status 404.
func (s *Server) notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	page := filepath.Join(s.cfg.Paths.Output, s.cfg.Server.NotFoundPage)
	content, err := afero.ReadFile(s.fs, page)
	w.WriteHeader(http.StatusNotFound)
	if err != nil {
		_, _ = w.Write([]byte("404 - Page Not Found"))
		return
	}
	_, _ = w.Write(injectReload(content))
}

// Run builds the site once, then serves it until ctx is done, rebuilding
// whenever a source file changes.
func (s *Server) Run(ctx context.Context) error {
	if s.builder != nil {
		report, err := s.builder.Build(ctx)
		if err != nil {
			s.logger.Error("Initial build failed", "error", err)
		} else {
			report.Log(s.logger)
		}
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(s.hub.close)

	var watcherDone <-chan struct{}
	if s.builder != nil {
		done, err := s.startWatcher(ctx)
		if err != nil {
			s.logger.Warn("Auto-rebuild disabled", "error", err)
		} else {
			watcherDone = done
		}
	}

	go func() {
		<-ctx.Done()
		fmt.Println("\n🛑 Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	fmt.Printf("🌐 Serving %s on http://%s\n", s.cfg.Paths.Output, addr)
	if s.cfg.Server.Host == "0.0.0.0" {
		fmt.Println("   (Accessible on your local network)")
	}
	fmt.Println("   (Auto-reload enabled via /events)")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if watcherDone != nil {
		<-watcherDone
	}
	fmt.Println("✅ Server stopped.")
	return nil
}
