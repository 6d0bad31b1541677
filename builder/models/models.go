// Package models defines the data structures shared by the page engine,
// templates and generators.
package models

import (
	"encoding/xml"
	"html/template"
	"time"
)

// --- TOC Structure ---
type TOCEntry struct {
	ID    string
	Text  string
	Level int
}

// Page is one source page after front matter parsing. Content is filled in
// once the body has been rendered.
type Page struct {
	InputPath   string
	OutputPath  string // empty when the page has permalink: false
	URL         string // always starts and ends with "/" for directory pages
	FileSlug    string
	Layout      string
	Title       string
	Description string
	Tags        []string
	Date        time.Time
	Published   bool
	Featured    int
	ReadingTime string
	WordCount   int
	IsMarkdown  bool
	Data        map[string]interface{}
	Body        string
	Content     template.HTML
	TOC         []TOCEntry
	Nav         *NavEntry // nil unless the page declares eleventyNavigation
}

// HasTag reports whether the page carries tag.
func (p *Page) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Collections groups pages the way layouts consume them.
type Collections struct {
	All              []*Page
	Tags             map[string][]*Page
	AllPages         []*Page
	Blogposts        []*Page
	FeaturedProjects []*Page

	// Navigation holds the top-level entries, NavByKey every entry.
	Navigation []*NavEntry
	NavByKey   map[string]*NavEntry
}

// --- Navigation ---

// NavEntry is one node of the navigation tree. Pages join it with the
// eleventyNavigation front matter key (key, parent, order, title, url,
// excerpt) and hang under the entry whose Key matches their Parent.
type NavEntry struct {
	Key      string
	Title    string
	URL      string
	Parent   string
	Excerpt  string
	Order    int
	Children []*NavEntry
}

// Site is the site-wide metadata exposed to templates.
type Site struct {
	Title       string
	URL         string
	Description string
	Author      string
	Language    string
	Year        int
}

// PageData is the context passed to HTML templates.
type PageData struct {
	Site        Site
	Page        *Page
	Collections *Collections
	Content     template.HTML
	Data        map[string]interface{} // files under _data, keyed by base name
	Meta        map[string]interface{} // the page's front matter
	Assets      map[string]string
	BuildTime   time.Time
}

// --- RSS Structures ---

type Rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Atom    string   `xml:"xmlns:atom,attr"`
	Channel Channel  `xml:"channel"`
}

type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type Channel struct {
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language,omitempty"`
	LastBuildDate string   `xml:"lastBuildDate,omitempty"`
	AtomLink      AtomLink `xml:"atom:link"`
	Items         []Item   `xml:"item"`
}

type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Guid        string `xml:"guid"`
}
