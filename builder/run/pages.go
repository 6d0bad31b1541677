package run

import (
	"fmt"
	"io/fs"
	"math"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/models"
	mdParser "github.com/pustelto/sitepipe/builder/parser"
	"github.com/pustelto/sitepipe/builder/utils"
)

const wordsPerMinute = 200

// Permalink returns the output path (relative to the output dir) and URL of
// the page at rel, a slash-separated path relative to the input dir. ok is
// false when front matter sets permalink: false.
func Permalink(rel string, fm map[string]interface{}) (out, url string, ok bool) {
	if v, set := fm["permalink"]; set {
		switch p := v.(type) {
		case bool:
			if !p {
				return "", "", false
			}
		case string:
			if p = strings.TrimSpace(p); p != "" {
				return permalinkFromString(p)
			}
		}
	}

	dir, file := path.Split(rel)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if stem != "index" {
		dir = path.Join(dir, stem) + "/"
	}
	dir = strings.TrimPrefix(dir, "/")
	url = "/" + dir
	if dir == "" {
		url = "/"
	}
	return path.Join(dir, "index.html"), url, true
}

func permalinkFromString(p string) (string, string, bool) {
	url := "/" + strings.TrimPrefix(p, "/")
	if strings.HasSuffix(url, "/") {
		return strings.TrimPrefix(path.Join(url, "index.html"), "/"), url, true
	}
	return strings.TrimPrefix(path.Clean(url), "/"), url, true
}

// FileSlug is the page's file name without extension, or its folder name
// for index pages.
func FileSlug(rel string) string {
	dir, file := path.Split(rel)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if stem == "index" {
		if dir = strings.Trim(dir, "/"); dir == "" {
			return ""
		}
		return path.Base(dir)
	}
	return stem
}

// ReadingTime renders "N min read" at 200 words per minute.
func ReadingTime(words int) string {
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	return strconv.Itoa(minutes) + " min read"
}

// layoutName maps front matter layout values such as "layouts/post.njk" to
// a name under the layouts dir.
func layoutName(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "layouts/")
	if ext := path.Ext(v); ext == ".njk" || ext == ".html" {
		v = strings.TrimSuffix(v, ext)
	}
	return v
}

func (b *Builder) isPageFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".md", ".html":
		return true
	}
	return false
}

// loadPages walks the input dir and parses every page's front matter.
// Bodies are left unrendered.
func (b *Builder) loadPages() ([]*models.Page, error) {
	input := b.cfg.Paths.Input
	skip := []string{b.cfg.Paths.Includes, b.cfg.Paths.Data, b.cfg.Video.RawDir, "node_modules"}
	dirData := newDirectoryData(b.SourceFs, input)

	var pages []*models.Page
	err := utils.WalkFiles(b.SourceFs, input, skip, func(p string, info fs.FileInfo) error {
		if !b.isPageFile(p) {
			return nil
		}
		page, err := b.loadPage(p, info, dirData)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByDate(pages)
	return pages, nil
}

func (b *Builder) loadPage(p string, info fs.FileInfo, dirData *directoryData) (*models.Page, error) {
	src, err := afero.ReadFile(b.SourceFs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	fm, body, err := mdParser.SplitFrontMatter(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	rel, err := utils.ToSlashRel(b.cfg.Paths.Input, p)
	if err != nil {
		return nil, err
	}

	data, err := dirData.For(rel)
	if err != nil {
		return nil, err
	}
	data = mergeData(data, fm)

	page := &models.Page{
		InputPath:   p,
		FileSlug:    FileSlug(rel),
		Layout:      layoutName(utils.GetString(data, "layout")),
		Title:       utils.GetString(data, "title"),
		Description: utils.GetString(data, "description"),
		Tags:        utils.GetSlice(data, "tags"),
		Published:   utils.GetBool(data, "published"),
		Featured:    getInt(data, "featured"),
		IsMarkdown:  strings.EqualFold(filepath.Ext(p), ".md"),
		Data:        data,
		Body:        string(body),
	}
	if out, url, ok := Permalink(rel, data); ok {
		page.OutputPath = filepath.Join(b.cfg.Paths.Output, filepath.FromSlash(out))
		page.URL = url
	}
	page.Nav = navEntry(data, page.URL)
	if d, ok := utils.GetTime(data, "date"); ok {
		page.Date = d
	} else {
		page.Date = info.ModTime()
	}
	// Estimated until the body is rendered.
	page.WordCount = len(strings.Fields(page.Body))
	page.ReadingTime = ReadingTime(page.WordCount)
	return page, nil
}

// navEntry reads the eleventyNavigation key. The title falls back to the
// key and the URL to the page URL.
func navEntry(data map[string]interface{}, url string) *models.NavEntry {
	raw := stringMap(data["eleventyNavigation"])
	key := utils.GetString(raw, "key")
	if key == "" {
		return nil
	}
	e := &models.NavEntry{
		Key:     key,
		Title:   utils.GetString(raw, "title"),
		URL:     utils.GetString(raw, "url"),
		Parent:  utils.GetString(raw, "parent"),
		Excerpt: utils.GetString(raw, "excerpt"),
		Order:   getInt(raw, "order"),
	}
	if e.Title == "" {
		e.Title = key
	}
	if e.URL == "" {
		e.URL = url
	}
	return e
}

func stringMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out
	}
	return nil
}

func getInt(m map[string]interface{}, k string) int {
	switch v := m[k].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// sortByDate orders pages by date, then input path.
func sortByDate(pages []*models.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		if !pages[i].Date.Equal(pages[j].Date) {
			return pages[i].Date.Before(pages[j].Date)
		}
		return pages[i].InputPath < pages[j].InputPath
	})
}

func newestFirst(pages []*models.Page) []*models.Page {
	out := make([]*models.Page, len(pages))
	for i, p := range pages {
		out[len(pages)-1-i] = p
	}
	return out
}

func buildYear() int {
	return time.Now().Year()
}
