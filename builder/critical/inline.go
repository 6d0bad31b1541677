package critical

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	stylesheetSelector = `link[rel="stylesheet"]`
	inlinedSelector    = `head style[data-critical]`
	preloadOnload      = "this.onload=null;this.rel='stylesheet'"
	// criticalAttr marks the inlined block so a second run leaves the page alone.
	criticalAttr = "data-critical"
)

func parseDoc(doc []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(doc))
}

// IsInlined reports whether the <head> of doc already carries an inlined
// critical block. The marker anywhere else, such as in a code sample, does
// not count.
func IsInlined(doc []byte) bool {
	d, err := parseDoc(doc)
	if err != nil {
		return false
	}
	return isInlined(d)
}

func isInlined(d *goquery.Document) bool {
	return d.Find(inlinedSelector).Length() > 0
}

// Inline puts css in a <style> before the first stylesheet link in <head>,
// turns every stylesheet link into an async preload and keeps the original
// links inside <noscript> for clients without JavaScript.
func Inline(doc []byte, css string) ([]byte, error) {
	d, err := parseDoc(doc)
	if err != nil {
		return nil, err
	}
	return inline(d, css)
}

// inline edits d in place.
func inline(d *goquery.Document, css string) ([]byte, error) {
	head := d.Find("head").First()
	style := `<style ` + criticalAttr + `>` + strings.ReplaceAll(css, "</style", `<\/style`) + `</style>`

	links := head.Find(stylesheetSelector)
	if links.Length() == 0 {
		head.AppendHtml(style)
		return render(d)
	}

	var fallback strings.Builder
	links.Each(func(_ int, s *goquery.Selection) {
		if original, err := goquery.OuterHtml(s); err == nil {
			fallback.WriteString(original)
		}
	})

	links.First().BeforeHtml(style)
	links.Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("rel", "preload")
		s.SetAttr("as", "style")
		s.SetAttr("onload", preloadOnload)
	})
	head.AppendHtml("<noscript>" + fallback.String() + "</noscript>")
	return render(d)
}

func render(d *goquery.Document) ([]byte, error) {
	out, err := d.Html()
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// StylesheetHrefs lists the href of every stylesheet link in doc.
func StylesheetHrefs(doc []byte) []string {
	d, err := parseDoc(doc)
	if err != nil {
		return nil
	}
	return stylesheetHrefs(d)
}

func stylesheetHrefs(d *goquery.Document) []string {
	var hrefs []string
	d.Find(stylesheetSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}
