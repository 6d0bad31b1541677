// Package new scaffolds blog posts.
package new

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

// ErrExists is returned when the post file is already there.
var ErrExists = errors.New("file already exists")

type frontMatter struct {
	Title             string   `yaml:"title"`
	Date              string   `yaml:"date"`
	Description       string   `yaml:"description"`
	SocialDescription string   `yaml:"socialDescription"`
	Tags              []string `yaml:"tags"`
	Published         bool     `yaml:"published"`
}

const body = `
## Introduction

Start writing here...
`

// PostPath is where a post titled title lives.
func PostPath(cfg *config.Config, title string) (string, error) {
	slug := utils.Slug(title)
	if slug == "" {
		return "", fmt.Errorf("title %q produces an empty slug", title)
	}
	if len(slug) > 100 {
		slug = slug[:100]
	}
	return filepath.Join(cfg.Paths.Input, "blog", slug, "index.md"), nil
}

// Run creates an unpublished post dated now and returns its path.
func Run(fs afero.Fs, cfg *config.Config, title string, now time.Time) (string, error) {
	filename, err := PostPath(cfg, title)
	if err != nil {
		return "", err
	}
	if ok, _ := afero.Exists(fs, filename); ok {
		return "", fmt.Errorf("%s: %w", filename, ErrExists)
	}

	fm, err := yaml.Marshal(frontMatter{
		Title:       title,
		Date:        now.Format("2006-01-02"),
		Description: "Enter a short description here...",
		Tags:        []string{},
	})
	if err != nil {
		return "", err
	}
	content := "---\n" + string(fm) + "---\n" + body
	if err := utils.WriteFile(fs, filename, []byte(content)); err != nil {
		return "", err
	}

	fmt.Printf("✅ Created: %s\n", filename)
	return filename, nil
}
