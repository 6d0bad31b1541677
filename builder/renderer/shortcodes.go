package renderer

import (
	"fmt"
	"html/template"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/generators"
	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/video"
)

// DefaultImageSizes is the sizes attribute of responsive images.
const DefaultImageSizes = "(max-width: 39.4375rem) 100vw, 608px"

// Shortcodes are the template functions bound to one page. Image paths are
// resolved against the page's source directory and variants are written next
// to the page output.
type Shortcodes struct {
	Site      config.SiteConfig
	Images    *generators.ResponsiveImages
	Sizes     string
	Qualities []config.Quality
	InputDir  string
	OutputDir string
	Page      *models.Page
}

func (s *Shortcodes) Funcs() template.FuncMap {
	return template.FuncMap{
		"codepen":    s.Codepen,
		"image":      s.Image,
		"decorative": s.Decorative,
		"figure":     s.Figure,
		"video":      s.Video,
	}
}

// Codepen renders the CodePen embed. Tabs default to css,result.
func (s *Shortcodes) Codepen(penID, title string, tabs ...string) string {
	if len(tabs) == 0 {
		tabs = []string{"css", "result"}
	}
	user := template.HTMLEscapeString(s.Site.CodepenUser)
	id := template.HTMLEscapeString(penID)
	t := template.HTMLEscapeString(title)
	author := template.HTMLEscapeString(s.Site.Author)

	var b strings.Builder
	fmt.Fprintf(&b, `<p class="codepen" data-height="324" data-theme-id="dark" data-default-tab="%s" data-user="%s" data-slug-hash="%s" data-preview="true" style="height: 324px; box-sizing: border-box; display: flex; align-items: center; justify-content: center; border: 2px solid; margin: 1em 0; padding: 1em;" data-pen-title="%s">`,
		template.HTMLEscapeString(strings.Join(tabs, ",")), user, id, t)
	fmt.Fprintf(&b, "\n<span>See the Pen <a href=\"https://codepen.io/%s/pen/%s\">\n%s</a> by %s (<a href=\"https://codepen.io/%s\">@%s</a>)\non <a href=\"https://codepen.io\">CodePen</a>.</span>\n</p>\n",
		user, id, t, author, user, user)
	b.WriteString(`<script async src="https://static.codepen.io/assets/embed/ei.js"></script>` + "\n")
	return b.String()
}

// Image renders a responsive <picture>. Leaving out alt fails the page, an
// explicit "" marks the image decorative.
func (s *Shortcodes) Image(src string, alt ...string) (string, error) {
	switch len(alt) {
	case 0:
		return "", batch.Errorf(src, batch.KindMissingInput, "missing alt on image %s in %s", src, s.pageInput())
	case 1:
		return s.picture(src, alt[0])
	default:
		return "", fmt.Errorf("image %s: want one alt argument, got %d", src, len(alt))
	}
}

// Decorative renders an image with alt="".
func (s *Shortcodes) Decorative(src string) (string, error) {
	return s.picture(src, "")
}

// Figure wraps the picture of Image in a <figure> with a caption.
func (s *Shortcodes) Figure(src, alt, caption string) (string, error) {
	pic, err := s.picture(src, alt)
	if err != nil {
		return "", err
	}
	return "<figure>" + pic + "<figcaption>" + caption + "</figcaption></figure>", nil
}

func (s *Shortcodes) picture(src, alt string) (string, error) {
	alt = strings.TrimSpace(alt)
	if s.Images == nil {
		return "", fmt.Errorf("image processing is not configured")
	}

	pageDir := s.pageURL()
	set, err := s.Images.Generate(
		filepath.Join(s.InputDir, filepath.FromSlash(pageDir), filepath.FromSlash(src)),
		filepath.Join(s.OutputDir, filepath.FromSlash(pageDir)),
		"./",
	)
	if err != nil {
		return "", batch.Wrap(src, batch.KindFilesystem, err)
	}

	sizes := s.Sizes
	if sizes == "" {
		sizes = DefaultImageSizes
	}

	var b strings.Builder
	b.WriteString("<picture>\n")
	writeSource(&b, "image/webp", set.WebP, sizes)
	writeSource(&b, "image/jpeg", set.JPEG, sizes)
	low := set.Smallest()
	fmt.Fprintf(&b, `<img alt="%s" src="%s" width="%d" height="%d" loading="lazy" decoding="async">`,
		template.HTMLEscapeString(alt), low.URL, low.Width, low.Height)
	b.WriteString("\n</picture>")
	return b.String(), nil
}

func writeSource(b *strings.Builder, mime string, variants []generators.ImageVariant, sizes string) {
	srcset := make([]string, 0, len(variants))
	for _, v := range variants {
		srcset = append(srcset, fmt.Sprintf("%s %dw", v.URL, v.Width))
	}
	fmt.Fprintf(b, "  <source type=\"%s\" srcset=\"%s\" sizes=\"%s\">\n", mime, strings.Join(srcset, ", "), sizes)
}

// Video renders a <video> pointing at the transcoded variants of base,
// largest rendition first and webm before mp4 within a rendition.
func (s *Shortcodes) Video(base, alt string) (string, error) {
	if strings.TrimSpace(alt) == "" {
		return "", batch.Errorf(base, batch.KindMissingInput, "missing alt on video %s in %s", base, s.pageInput())
	}
	qualities := append([]config.Quality(nil), s.Qualities...)
	sort.SliceStable(qualities, func(i, j int) bool { return qualities[i].Height > qualities[j].Height })

	var b strings.Builder
	fmt.Fprintf(&b, `<video controls playsinline preload="metadata" poster="./%s" aria-label="%s">`,
		video.OutputName(base, video.PosterSuffix, "jpg"), template.HTMLEscapeString(alt))
	b.WriteString("\n")
	for _, f := range []struct{ ext, mime string }{{"webm", "video/webm"}, {"mp4", "video/mp4"}} {
		for _, q := range qualities {
			fmt.Fprintf(&b, "  <source src=\"./%s\" type=\"%s\">\n", video.OutputName(base, q.Name, f.ext), f.mime)
		}
	}
	b.WriteString("</video>")
	return b.String(), nil
}

func (s *Shortcodes) pageURL() string {
	if s.Page == nil || s.Page.URL == "" {
		return "/"
	}
	return path.Clean(s.Page.URL)
}

func (s *Shortcodes) pageInput() string {
	if s.Page == nil {
		return ""
	}
	return s.Page.InputPath
}
