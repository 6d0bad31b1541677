// Package scaffold lays out a new site that builds out of the box.
package scaffold

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/pustelto/sitepipe/builder/config"
)

const baseLayout = `<!doctype html>
<html lang="{{ .Site.Language }}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ withAuthor .Page.Title }}</title>
  <link rel="stylesheet" href="{{ .Assets.css }}">
</head>
<body>
{{ .Content }}
</body>
</html>
`

const postLayout = `---
layout: base
---
<article>
  <h1>{{ .Page.Title }}</h1>
  <p>{{ readableDate .Page.Date }} · {{ .Page.ReadingTime }}</p>
  {{ .Content }}
</article>
`

const stylesheet = `body {
  margin: 0 auto;
  max-width: 40rem;
  font-family: system-ui, sans-serif;
}
`

const script = `document.documentElement.classList.add("js");
`

const homePage = `---
title: Home
layout: base
---
<ul>
{{ range .Collections.Blogposts }}  <li><a href="{{ .URL }}">{{ .Title }}</a></li>
{{ end }}</ul>
`

const notFoundPage = `---
title: Not found
layout: base
permalink: 404.html
socialImage: false
---
Nothing here.
`

const blogData = `{
  "tags": ["posts"],
  "layout": "post"
}
`

const firstPost = `---
title: Hello World
date: "%s"
published: true
tags: [welcome]
---
This is your first post. Run ` + "`sitepipe serve`" + ` and edit this file.
`

// Run writes a config file and a minimal source tree into fs. Existing
// files are left alone.
func Run(fs afero.Fs, cfg *config.Config, date string) error {
	fmt.Println("🌱 Initializing new site...")

	conf, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	includes := filepath.Join(cfg.Paths.Input, cfg.Paths.Includes)
	files := []struct {
		path    string
		content string
	}{
		{"sitepipe.yaml", string(conf)},
		{filepath.Join(cfg.Paths.LayoutsDir(), "base.html"), baseLayout},
		{filepath.Join(cfg.Paths.LayoutsDir(), "post.html"), postLayout},
		{cfg.Styles.Entry, stylesheet},
		{filepath.Join(cfg.Paths.Input, "index.html"), homePage},
		{filepath.Join(cfg.Paths.Input, "404.md"), notFoundPage},
		{filepath.Join(cfg.Paths.Input, "blog", "blog.json"), blogData},
		{filepath.Join(cfg.Paths.Input, "blog", "hello-world", "index.md"), fmt.Sprintf(firstPost, date)},
	}

	names := make([]string, 0, len(cfg.Scripts.Entries))
	for name := range cfg.Scripts.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		files = append(files, struct {
			path    string
			content string
		}{cfg.Scripts.Entries[name], script})
	}

	if err := fs.MkdirAll(filepath.Join(cfg.Paths.Input, cfg.Paths.Data), 0755); err != nil {
		return err
	}
	if err := fs.MkdirAll(includes, 0755); err != nil {
		return err
	}

	for _, f := range files {
		if f.path == "" {
			continue
		}
		if ok, _ := afero.Exists(fs, f.path); ok {
			fmt.Printf("   ⚠️ '%s' already exists, skipping.\n", f.path)
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", f.path, err)
		}
		fmt.Printf("   📄 Created '%s'\n", f.path)
	}

	fmt.Println("\n✅ Site initialized. Run 'sitepipe serve' to start.")
	return nil
}
