package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/confirmation.html.tmpl"))
	textTemplate = template.Must(template.ParseFS(templateFS, "templates/confirmation.txt.tmpl"))
)

// Render returns the HTML and plain-text bodies for c.
func Render(c Confirmation) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := htmlTemplate.Execute(&hb, c); err != nil {
		return "", "", err
	}
	if err := textTemplate.Execute(&tb, c); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
