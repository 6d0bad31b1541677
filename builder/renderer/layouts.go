package renderer

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/parser"
	"github.com/pustelto/sitepipe/builder/utils"
)

const maxLayoutDepth = 10

type layoutEntry struct {
	tmpl   *template.Template
	parent string
	mtime  time.Time
}

// Layouts loads html/template layouts from the layouts dir on demand. A layout
// may name a parent layout in its own front matter. Every .html file under
// the partials dir is available to {{template "name.html"}}.
type Layouts struct {
	fs          afero.Fs
	dir         string
	partialsDir string
	funcs       template.FuncMap

	mu        sync.RWMutex
	templates map[string]*layoutEntry
	checkTTL  time.Duration // How often to re-check mtimes
	lastCheck map[string]time.Time
}

func NewLayouts(fs afero.Fs, dir, partialsDir string, funcs template.FuncMap) *Layouts {
	return &Layouts{
		fs:          fs,
		dir:         dir,
		partialsDir: partialsDir,
		funcs:       funcs,
		templates:   make(map[string]*layoutEntry),
		checkTTL:    2 * time.Second,
		lastCheck:   make(map[string]time.Time),
	}
}

func (l *Layouts) path(name string) string {
	if filepath.Ext(name) == "" {
		name += ".html"
	}
	return filepath.Join(l.dir, filepath.FromSlash(name))
}

func (l *Layouts) get(name string) (*layoutEntry, error) {
	p := l.path(name)
	now := time.Now()

	l.mu.RLock()
	entry, ok := l.templates[name]
	checked := l.lastCheck[name]
	l.mu.RUnlock()

	// Skip the stat within the TTL, assume unchanged
	if ok && now.Sub(checked) < l.checkTTL {
		return entry, nil
	}

	info, err := l.fs.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("layout %q not found: %w", name, err)
	}
	if ok && !info.ModTime().After(entry.mtime) {
		l.mu.Lock()
		l.lastCheck[name] = now
		l.mu.Unlock()
		return entry, nil
	}

	entry, err = l.load(name, p, info.ModTime())
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.templates[name] = entry
	l.lastCheck[name] = now
	l.mu.Unlock()
	return entry, nil
}

func (l *Layouts) load(name, p string, mtime time.Time) (*layoutEntry, error) {
	src, err := afero.ReadFile(l.fs, p)
	if err != nil {
		return nil, err
	}
	fm, body, err := parser.SplitFrontMatter(src)
	if err != nil {
		return nil, fmt.Errorf("layout %q: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(l.funcs).Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %q: %w", name, err)
	}
	if err := l.addPartials(tmpl); err != nil {
		return nil, err
	}

	return &layoutEntry{
		tmpl:   tmpl,
		parent: utils.GetString(fm, "layout"),
		mtime:  mtime,
	}, nil
}

func (l *Layouts) addPartials(tmpl *template.Template) error {
	if l.partialsDir == "" {
		return nil
	}
	if exists, _ := afero.DirExists(l.fs, l.partialsDir); !exists {
		return nil
	}
	layoutsDir := filepath.Clean(l.dir)
	return afero.Walk(l.fs, l.partialsDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if filepath.Clean(p) == layoutsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".html") {
			return nil
		}
		rel, err := utils.ToSlashRel(l.partialsDir, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(l.fs, p)
		if err != nil {
			return err
		}
		if _, err := tmpl.New(rel).Parse(string(data)); err != nil {
			return fmt.Errorf("failed to parse partial %q: %w", rel, err)
		}
		return nil
	})
}

// Render executes layout name with data, then each parent layout with the
// previous output as Content.
func (l *Layouts) Render(name string, data models.PageData) ([]byte, error) {
	var buf bytes.Buffer
	for depth := 0; name != ""; depth++ {
		if depth >= maxLayoutDepth {
			return nil, fmt.Errorf("layout chain too deep at %q", name)
		}
		entry, err := l.get(name)
		if err != nil {
			return nil, err
		}
		buf.Reset()
		if err := entry.tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render layout %q: %w", name, err)
		}
		data.Content = template.HTML(buf.String())
		name = entry.parent
	}
	return buf.Bytes(), nil
}
