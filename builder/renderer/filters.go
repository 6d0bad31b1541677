package renderer

import (
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"time"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/generators"
	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/utils"
)

// Filters returns the template functions shared by page bodies and layouts.
// The same map works for text/template and html/template.
func Filters(site config.SiteConfig) template.FuncMap {
	return template.FuncMap{
		"toDate":       ToDate,
		"readableDate": ReadableDate,
		"isoDate":      IsoDate,
		"isoDuration":  IsoDuration,
		"rssDate":      RSSDate,
		"lastUpdated":  LastUpdated,
		"head":         Head,
		"urlHead":      URLHead,
		"twitterShare": func(path, quote string) string {
			return TwitterShare(site.URL, path, quote)
		},
		"withAuthor": func(title string) string {
			return WithAuthor(site.Author, title)
		},
		"absoluteURL": func(path string) string {
			return generators.AbsoluteURL(site.URL, path)
		},
		"slug":      utils.Slug,
		"lower":     strings.ToLower,
		"hasPrefix": strings.HasPrefix,
		"now":       time.Now,
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"navigation":           Navigation,
		"navigationBreadcrumb": NavigationBreadcrumb,
		"navigationToHTML":     NavigationToHTML,
	}
}

// Navigation returns the top-level entries, or the children of key.
func Navigation(c *models.Collections, key ...string) []*models.NavEntry {
	if c == nil {
		return nil
	}
	if len(key) == 0 || key[0] == "" {
		return c.Navigation
	}
	if e, ok := c.NavByKey[key[0]]; ok {
		return e.Children
	}
	return nil
}

// NavigationBreadcrumb returns the ancestors of key, outermost first, and
// key itself when includeSelf is set.
func NavigationBreadcrumb(c *models.Collections, key string, includeSelf ...bool) []*models.NavEntry {
	if c == nil {
		return nil
	}
	e, ok := c.NavByKey[key]
	if !ok {
		return nil
	}
	var trail []*models.NavEntry
	if len(includeSelf) > 0 && includeSelf[0] {
		trail = append(trail, e)
	}
	seen := map[string]bool{key: true}
	for e.Parent != "" && !seen[e.Parent] {
		parent, ok := c.NavByKey[e.Parent]
		if !ok {
			break
		}
		seen[parent.Key] = true
		trail = append(trail, parent)
		e = parent
	}
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail
}

// NavigationToHTML renders entries as nested lists. The entry matching
// activeKey gets class "active" and aria-current.
func NavigationToHTML(entries []*models.NavEntry, activeKey ...string) template.HTML {
	active := ""
	if len(activeKey) > 0 {
		active = activeKey[0]
	}
	var b strings.Builder
	writeNav(&b, entries, active, map[string]bool{})
	return template.HTML(b.String())
}

func writeNav(b *strings.Builder, entries []*models.NavEntry, active string, seen map[string]bool) {
	if len(entries) == 0 {
		return
	}
	b.WriteString("<ul>")
	for _, e := range entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		b.WriteString("<li>")
		attrs := ""
		if e.Key == active {
			attrs = ` class="active" aria-current="page"`
		}
		fmt.Fprintf(b, `<a href="%s"%s>%s</a>`, template.HTMLEscapeString(e.URL), attrs, template.HTMLEscapeString(e.Title))
		writeNav(b, e.Children, active, seen)
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ToDate parses an ISO date string. time.Time values pass through.
func ToDate(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return *d, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(d)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", d)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

// ReadableDate renders "July 24, 2020".
func ReadableDate(v interface{}) (string, error) {
	t, err := ToDate(v)
	if err != nil {
		return "", err
	}
	return t.Format("January 2, 2006"), nil
}

// IsoDate renders "2020-07-24".
func IsoDate(v interface{}) (string, error) {
	t, err := ToDate(v)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// IsoDuration turns "5 min read" into "PT5M".
func IsoDuration(readingTime string) string {
	fields := strings.Fields(readingTime)
	if len(fields) == 0 {
		return "PT0M"
	}
	return "PT" + fields[0] + "M"
}

// RSSDate renders "Fri, 24 Jul 2020 00:00:00 +0000".
func RSSDate(v interface{}) (string, error) {
	t, err := ToDate(v)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(generators.RSSDateLayout), nil
}

// LastUpdated returns the newest page date in a collection.
func LastUpdated(pages []*models.Page) time.Time {
	var latest time.Time
	for _, p := range pages {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	return latest
}

// Head returns the first n items of a slice, or the last |n| when n is
// negative. n is clamped to the slice length.
func Head(items interface{}, n int) (interface{}, error) {
	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("head: expected a slice, got %T", items)
	}
	length := v.Len()
	if n < 0 {
		n = -n
		if n > length {
			n = length
		}
		return v.Slice(length-n, length).Interface(), nil
	}
	if n > length {
		n = length
	}
	return v.Slice(0, n).Interface(), nil
}

// URLHead returns the first path segment of a page URL with a trailing
// slash, used to highlight the menu item of nested pages.
func URLHead(path string) string {
	if path == "/" {
		return path
	}
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return path + "/"
	}
	return strings.Join(parts[:2], "/") + "/"
}

// TwitterShare builds the tweet intent URL for a page.
func TwitterShare(siteURL, path, quote string) string {
	text := quote + " " + strings.TrimSuffix(siteURL, "/") + path
	return "https://twitter.com/intent/tweet?text=" + utils.EncodeURI(text)
}

// WithAuthor appends the author to a head title. An empty title stays empty.
func WithAuthor(author, title string) string {
	if title == "" {
		return ""
	}
	return title + " - " + author + "'s personal website"
}
