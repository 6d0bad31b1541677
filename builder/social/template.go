package social

import (
	"bytes"
	"html/template"
)

// CardOptions are the parts of a card that do not come from the entry.
type CardOptions struct {
	Byline string
	Link   string
	Width  int
	Height int
}

type cardData struct {
	Entry
	CardOptions
}

var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html><html lang="en"><meta charset="UTF-8" /><meta content="width=device-width,initial-scale=1" name="viewport" /><link href="https://fonts.gstatic.com" rel="preconnect"><link href="https://fonts.googleapis.com/css2?family=Source+Sans+Pro:wght@400;700;900&display=swap" rel="stylesheet" /> <body> <style> body { margin: 0; } .wrapper { width: {{.Width}}px; height: {{.Height}}px; padding: 80px 100px; box-sizing: border-box; display: grid; grid-template-rows: 70px min-content 1fr 46px; grid-gap: 20px; font-family: "Source Sans Pro"; } .name { font-size: 36px; font-weight: 700; line-height: 1.5; margin-top: -13px; align-self: end; } .name:after { content: ""; display: block; height: 5px; width: 85px; background: #30a5bf; margin-top: 20px; margin-bottom: 0; } .title { font-size: 76px; font-weight: 900; margin: 0; letter-spacing: 0.1px; line-height: 1.1; margin-bottom: 10px; } .tags { font-size: 28px; line-height: 1.5; display: flex; list-style: none; margin: 0; padding: 0; color: #757575; } .tags li:not(:first-child):before { content: "|"; display: inline-block; margin: 0 0.75ch; } .link { font-size: 28px; color: #757575; line-height: 1.5; margin-top: 10px; } </style>
  <div class="wrapper">
    <span class="name">{{if not .Description}}{{.Byline}}{{end}}</span>
    <h1 class="title">{{.Title}}</h1>
    {{if .Description}}<span class="tags">{{.Description}}</span>{{end}}
    <ul class="tags">{{range .Tags}}<li>{{.}}</li>{{end}}</ul>
    <span class="link">{{.Link}}</span>
  </div>
  </body>
</html>`))

// CardHTML fills the share card template for e. Text is HTML escaped.
func CardHTML(e Entry, opts CardOptions) (string, error) {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 630
	}
	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, cardData{Entry: e, CardOptions: opts}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
