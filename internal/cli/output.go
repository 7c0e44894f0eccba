package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	platformStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	metaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// truncate shortens s to at most width display columns, adding "...".
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// padRight pads s with spaces to width display columns.
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// orderedPlatforms returns the result's platforms in display order.
func orderedPlatforms(content map[repurpose.Platform]repurpose.Content) []repurpose.Platform {
	platforms := make([]repurpose.Platform, 0, len(content))
	for p := range content {
		platforms = append(platforms, p)
	}
	return repurpose.Canonical(platforms)
}

func displayName(p repurpose.Platform) string {
	if spec, ok := repurpose.DefaultCatalog()[p]; ok {
		return spec.DisplayName
	}
	return string(p)
}

// renderResult writes each platform's content in a box.
func renderResult(w io.Writer, res *repurpose.Result) {
	for _, p := range orderedPlatforms(res.Content) {
		c := res.Content[p]
		fmt.Fprintln(w, platformStyle.Render(displayName(p)))
		body := c.String()
		if c.Failed {
			body = failStyle.Render(body)
		}
		fmt.Fprintln(w, boxStyle.Width(80).Render(body))
		fmt.Fprintln(w)
	}

	meta := res.Metadata
	line := fmt.Sprintf("model %s · %d prompt + %d completion tokens", meta.Model, meta.Usage.PromptTokens, meta.Usage.CompletionTokens)
	if len(meta.Content.Hashtags) > 0 {
		line += " · " + strings.Join(meta.Content.Hashtags, " ")
	}
	fmt.Fprintln(w, metaStyle.Render(line))
}

// renderItems writes a summary table followed by the content of every
// successful item.
func renderItems(w io.Writer, results []pipeline.ItemResult) {
	ok, failed := pipeline.Summary(results)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d item(s): %d succeeded, %d failed", len(results), ok, failed)))
	fmt.Fprintln(w)

	for _, r := range results {
		item := r.Media.Item
		label := item.Title
		if label == "" {
			label = item.ExternalID
		}
		status := string(r.Media.Status())
		if r.Media.CacheHit {
			status += " (cached)"
		}
		fmt.Fprintf(w, "  %s %s %s\n", statusIcon(r.Media.Status()), padRight(truncate(label, 48), 48), metaStyle.Render(status))
		if r.Err != nil {
			fmt.Fprintf(w, "    %s\n", failStyle.Render(truncate(r.Err.Error(), 100)))
		}
	}

	for _, r := range results {
		if r.Result == nil {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(truncate(r.Media.Item.URL, 80)))
		fmt.Fprintln(w)
		renderResult(w, r.Result)
	}
}

type itemJSON struct {
	URL        string            `json:"url"`
	ExternalID string            `json:"externalId"`
	Platform   string            `json:"platform"`
	Title      string            `json:"title,omitempty"`
	Status     pipeline.Status   `json:"status"`
	CacheHit   bool              `json:"cacheHit,omitempty"`
	Result     *repurpose.Result `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeItemsJSON(w io.Writer, results []pipeline.ItemResult) error {
	out := make([]itemJSON, len(results))
	for i, r := range results {
		item := r.Media.Item
		out[i] = itemJSON{
			URL:        item.URL,
			ExternalID: item.ExternalID,
			Platform:   string(item.Platform),
			Title:      item.Title,
			Status:     r.Media.Status(),
			CacheHit:   r.Media.CacheHit,
			Result:     r.Result,
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return writeJSON(w, out)
}
