package run

import (
	"sort"

	"github.com/pustelto/sitepipe/builder/models"
)

const (
	tagPosts   = "posts"
	tagProject = "project"
)

// BuildCollections groups pages, which must already be in date order.
func BuildCollections(pages []*models.Page) *models.Collections {
	c := &models.Collections{
		All:  pages,
		Tags: make(map[string][]*models.Page),
	}
	for _, p := range pages {
		for _, tag := range p.Tags {
			c.Tags[tag] = append(c.Tags[tag], p)
		}
		if !p.HasTag(tagProject) {
			c.AllPages = append(c.AllPages, p)
		}
		if p.HasTag(tagPosts) && p.Published {
			c.Blogposts = append(c.Blogposts, p)
		}
	}

	c.FeaturedProjects = append([]*models.Page(nil), c.Tags[tagProject]...)
	sort.SliceStable(c.FeaturedProjects, func(i, j int) bool {
		return c.FeaturedProjects[i].Featured > c.FeaturedProjects[j].Featured
	})
	c.Navigation, c.NavByKey = BuildNavigation(pages)
	return c
}

// BuildNavigation links the navigation entries of pages into a tree by
// parent key. When two pages claim a key the first in date order wins.
// Entries whose parent does not exist stay out of the tree but remain
// reachable by key.
func BuildNavigation(pages []*models.Page) ([]*models.NavEntry, map[string]*models.NavEntry) {
	byKey := make(map[string]*models.NavEntry)
	var entries []*models.NavEntry
	for _, p := range pages {
		if p.Nav == nil {
			continue
		}
		if _, dup := byKey[p.Nav.Key]; dup {
			continue
		}
		// Copy so rebuilding collections never grows a page's children.
		e := *p.Nav
		e.Children = nil
		byKey[e.Key] = &e
		entries = append(entries, &e)
	}

	var roots []*models.NavEntry
	for _, e := range entries {
		if e.Parent == "" {
			roots = append(roots, e)
			continue
		}
		if parent, ok := byKey[e.Parent]; ok && parent != e {
			parent.Children = append(parent.Children, e)
		}
	}

	// A parent cycle leaves its entries out of the tree, so sort level by
	// level rather than recursing.
	SortNavigation(roots)
	for _, e := range entries {
		SortNavigation(e.Children)
	}
	return roots, byKey
}

// SortNavigation orders entries by Order, then Title.
func SortNavigation(entries []*models.NavEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Order != entries[j].Order {
			return entries[i].Order < entries[j].Order
		}
		return entries[i].Title < entries[j].Title
	})
}
