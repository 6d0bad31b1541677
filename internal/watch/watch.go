// Package watch reports debounced batches of changed source files.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher handles filesystem events and calls OnChange with every path
// that changed during one quiet period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	Dirs     []string
	Ignore   []string
	Debounce time.Duration
	OnChange func(paths []string)
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	wg      sync.WaitGroup
}

// New creates a new watcher for the specified directories. Paths under any
// of ignore are never reported.
func New(dirs, ignore []string, debounce time.Duration, logger *slog.Logger, onChange func([]string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		watcher:  w,
		Dirs:     dirs,
		Ignore:   ignore,
		Debounce: debounce,
		OnChange: onChange,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}, nil
}

func (w *Watcher) ignored(path string) bool {
	clean := filepath.Clean(path)
	for _, dir := range w.Ignore {
		dir = filepath.Clean(dir)
		if clean == dir || strings.HasPrefix(clean, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addTree adds dir and all its subdirectories, skipping hidden and ignored ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" || w.ignored(path)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Start watches until ctx is done. It returns once the last pending batch
// has been delivered.
func (w *Watcher) Start(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	for _, dir := range w.Dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := w.addTree(dir); err != nil {
			w.logger.Warn("Failed to watch directory", "dir", dir, "error", err)
		}
	}

	fmt.Println("👀 Watch mode active. Waiting for changes...")

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.stop()
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.stop()
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod || w.ignored(event.Name) {
		return
	}
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch directory", "dir", event.Name, "error", err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.wg.Add(1)
	w.mu.Unlock()

	defer w.wg.Done()
	sort.Strings(paths)
	w.OnChange(paths)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.wg.Wait()
}
