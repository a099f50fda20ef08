package ui

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/yuin/goldmark"
)

// renderMarkdown converts user-written text to HTML inside one wrapper
// element. goldmark drops raw HTML from the source.
func renderMarkdown(src string) (string, error) {
	var buf strings.Builder
	buf.WriteString(`<div class="markdown">`)
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	buf.WriteString("</div>")
	return buf.String(), nil
}

func markdown(src string) app.UI {
	if strings.TrimSpace(src) == "" {
		return app.Div()
	}
	html, err := renderMarkdown(src)
	if err != nil {
		return app.P().Class("muted").Text("Error rendering markdown")
	}
	return app.Raw(html)
}
