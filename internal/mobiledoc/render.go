package mobiledoc

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// RenderHTML converts markdown to the HTML Ghost 1.x produces for a
// markdown card.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<div class="kg-card-markdown">`)

	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	buf.WriteString(`</div>`)

	return buf.String(), nil
}

// RenderDocumentHTML renders the markdown card of doc.
func RenderDocumentHTML(doc string) (string, error) {
	md, err := ToMarkdown(doc)
	if err != nil {
		return "", err
	}

	return RenderHTML(md)
}
