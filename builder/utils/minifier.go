package utils

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

// NewMinifier returns a minifier configured for page output: comments are
// dropped, whitespace is collapsed conservatively and inline CSS/JS are
// minified as well.
func NewMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepWhitespace:   false,
		KeepQuotes:       false,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]json$"), json.Minify)
	return m
}

// Minifier is shared by the page renderer and the post-build passes.
var Minifier = NewMinifier()

// MinifyHTML is the html-min transform: anything whose output path is not an
// HTML file passes through untouched.
func MinifyHTML(content []byte, outputPath string) ([]byte, error) {
	if !strings.Contains(outputPath, ".html") {
		return content, nil
	}
	var buf bytes.Buffer
	if err := Minifier.Minify("text/html", &buf, bytes.NewReader(content)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MinifyCSS minifies a stylesheet.
func MinifyCSS(content []byte) ([]byte, error) {
	return Minifier.Bytes("text/css", content)
}

// MinifyJS minifies a script.
func MinifyJS(content []byte) ([]byte, error) {
	return Minifier.Bytes("text/javascript", content)
}
