package csssplit

import (
	"bytes"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const linkSelector = `link[rel="stylesheet"], link[rel="preload"][as="style"]`

// RewriteLinks points every stylesheet link whose file name is cssName at
// chunkName instead. Only the last path segment changes; the query string and
// fragment are kept. It returns the serialized document and the number of
// links changed. When nothing changed doc is returned as is.
func RewriteLinks(doc []byte, cssName, chunkName string) ([]byte, int, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, 0, err
	}

	count := 0
	d.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if newHref, changed := replaceFileName(href, cssName, chunkName); changed {
			s.SetAttr("href", newHref)
			count++
		}
	})
	if count == 0 {
		return doc, 0, nil
	}

	html, err := d.Html()
	if err != nil {
		return nil, 0, err
	}
	return []byte(html), count, nil
}

func replaceFileName(href, cssName, chunkName string) (string, bool) {
	p, rest := href, ""
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		p, rest = href[:i], href[i:]
	}
	if path.Base(p) != cssName || !strings.HasSuffix(p, cssName) {
		return href, false
	}
	return strings.TrimSuffix(p, cssName) + chunkName + rest, true
}
