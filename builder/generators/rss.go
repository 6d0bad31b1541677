package generators

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/utils"
)

// RSSDateLayout renders dates like "Fri, 24 Jul 2020 00:00:00 +0000".
const RSSDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// AbsoluteURL joins the site URL and a root-relative page URL.
func AbsoluteURL(siteURL, pageURL string) string {
	return strings.TrimSuffix(siteURL, "/") + "/" + strings.TrimPrefix(pageURL, "/")
}

// GenerateRSS writes an RSS 2.0 feed of posts to feedPath on fs. feedURL is
// the site-relative URL of the feed itself.
func GenerateRSS(fs afero.Fs, feedPath, feedURL string, site config.SiteConfig, posts []*models.Page) error {
	var items []models.Item
	var lastUpdated time.Time
	for _, p := range posts {
		link := AbsoluteURL(site.URL, p.URL)
		items = append(items, models.Item{
			Title:       p.Title,
			Link:        link,
			Description: p.Description,
			PubDate:     p.Date.UTC().Format(RSSDateLayout),
			Guid:        link,
		})
		if p.Date.After(lastUpdated) {
			lastUpdated = p.Date
		}
	}

	rss := models.Rss{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: models.Channel{
			Title:       site.Title,
			Link:        site.URL,
			Description: site.Description,
			Language:    site.Language,
			AtomLink: models.AtomLink{
				Href: AbsoluteURL(site.URL, feedURL),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
	if !lastUpdated.IsZero() {
		rss.Channel.LastBuildDate = lastUpdated.UTC().Format(RSSDateLayout)
	}

	output, err := xml.MarshalIndent(rss, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode feed: %w", err)
	}
	return utils.WriteFile(fs, feedPath, []byte(xml.Header+string(output)))
}
