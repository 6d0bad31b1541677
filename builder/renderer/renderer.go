// Handles body templating, layouts and writing rendered pages
package renderer

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	texttemplate "text/template"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/utils"
)

// Transform post-processes a rendered file. It returns content unchanged
// for outputs it does not handle.
type Transform func(content []byte, outputPath string) ([]byte, error)

type namedTransform struct {
	name string
	fn   Transform
}

type Renderer struct {
	Layouts *Layouts
	DestFs  afero.Fs
	logger  *slog.Logger

	mu           sync.Mutex
	transforms   []namedTransform
	writtenFiles map[string]bool
}

func New(layouts *Layouts, destFs afero.Fs, logger *slog.Logger) *Renderer {
	return &Renderer{
		Layouts:      layouts,
		DestFs:       destFs,
		logger:       logger,
		writtenFiles: make(map[string]bool),
	}
}

// AddTransform registers fn to run on every written page, in registration
// order.
func (r *Renderer) AddTransform(name string, fn Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms = append(r.transforms, namedTransform{name: name, fn: fn})
}

// ExecuteBody runs a page body as a text/template with funcs.
func ExecuteBody(name, body string, funcs template.FuncMap, data any) ([]byte, error) {
	tmpl, err := texttemplate.New(name).Funcs(texttemplate.FuncMap(funcs)).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderPage wraps data.Content in layout (none leaves it as is), runs the
// transforms and writes the result to path on DestFs.
func (r *Renderer) RenderPage(path, layout string, data models.PageData) error {
	out := []byte(data.Content)
	if layout != "" {
		rendered, err := r.Layouts.Render(layout, data)
		if err != nil {
			return err
		}
		out = rendered
	}

	out, err := r.applyTransforms(out, path)
	if err != nil {
		return err
	}

	if err := utils.WriteFile(r.DestFs, path, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.RegisterFile(path)
	r.logger.Debug("Rendered page", "path", path, "layout", layout)
	return nil
}

func (r *Renderer) applyTransforms(content []byte, path string) ([]byte, error) {
	r.mu.Lock()
	transforms := append([]namedTransform(nil), r.transforms...)
	r.mu.Unlock()

	for _, t := range transforms {
		out, err := t.fn(content, path)
		if err != nil {
			return nil, fmt.Errorf("transform %s failed for %s: %w", t.name, path, err)
		}
		content = out
	}
	return content, nil
}

func (r *Renderer) RegisterFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writtenFiles[path] = true
}

// WrittenFiles returns every path written during this build.
func (r *Renderer) WrittenFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	files := make([]string, 0, len(r.writtenFiles))
	for p := range r.writtenFiles {
		files = append(files, p)
	}
	return files
}
