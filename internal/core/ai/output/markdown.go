// Package output renders repurposed content as markdown.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
)

// Document is what a markdown file is built from. Title and Transcript are
// optional.
type Document struct {
	Title      string
	Transcript string
	Result     *repurpose.Result
}

// Render returns the markdown for doc.
func Render(doc Document) string {
	var b strings.Builder

	title := doc.Title
	if title == "" {
		title = "Repurposed content"
	}
	b.WriteString(fmt.Sprintf("# %s\n\n", title))

	meta := doc.Result.Metadata
	src := meta.Source
	if src.OriginalURL != "" {
		b.WriteString(fmt.Sprintf("**Source:** %s\n", src.OriginalURL))
	}
	if src.Platform != "" {
		b.WriteString(fmt.Sprintf("**Platform:** %s\n", src.Platform))
	}
	if src.Type != "" {
		b.WriteString(fmt.Sprintf("**Type:** %s\n", src.Type))
	}
	if meta.Model != "" {
		b.WriteString(fmt.Sprintf("**Model:** %s\n", meta.Model))
	}
	if meta.GeneratedAt != "" {
		b.WriteString(fmt.Sprintf("**Generated:** %s\n", meta.GeneratedAt))
	}
	if len(meta.Content.Hashtags) > 0 {
		b.WriteString(fmt.Sprintf("**Hashtags:** %s\n", strings.Join(meta.Content.Hashtags, " ")))
	}
	b.WriteString("\n---\n\n")

	cat := repurpose.DefaultCatalog()
	for _, p := range platforms(doc.Result) {
		name := string(p)
		if spec, ok := cat[p]; ok {
			name = spec.DisplayName
		}
		b.WriteString(fmt.Sprintf("## %s\n\n", name))

		c := doc.Result.Content[p]
		switch {
		case c.Kind == repurpose.KindScript:
			b.WriteString(fmt.Sprintf("**Caption:** %s\n\n", c.Caption))
			b.WriteString("**Script:**\n\n")
			b.WriteString(c.Script)
			b.WriteString("\n\n")
		case len(c.Thread) > 0:
			for i, tweet := range c.Thread {
				b.WriteString(fmt.Sprintf("%d. %s\n", i+1, tweet))
			}
			b.WriteString("\n")
		default:
			b.WriteString(c.Text)
			b.WriteString("\n\n")
		}
	}

	if t := strings.TrimSpace(doc.Transcript); t != "" {
		b.WriteString("## Transcript\n\n")
		b.WriteString(t)
		b.WriteString("\n")
	}

	return b.String()
}

// Write renders doc to path.
func Write(path string, doc Document) error {
	return os.WriteFile(path, []byte(Render(doc)), 0644)
}

func platforms(res *repurpose.Result) []repurpose.Platform {
	out := make([]repurpose.Platform, 0, len(res.Content))
	for p := range res.Content {
		out = append(out, p)
	}
	return repurpose.Canonical(out)
}
