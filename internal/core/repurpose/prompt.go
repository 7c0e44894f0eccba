package repurpose

import (
	"encoding/json"
	"fmt"
	"strings"
)

const jsonDirective = `Respond with ONLY a valid JSON object. Do not wrap it in code fences and do not add any text before or after it.`

// BuildPrompt builds the generation prompt with the default catalog.
func BuildPrompt(sourceText string, platforms []Platform, custom string) string {
	return DefaultCatalog().BuildPrompt(sourceText, platforms, custom)
}

// BuildPrompt assembles the directive, the JSON skeleton, the per-platform
// constraints and the source text, in that order. The result depends only on
// its arguments and is whitespace-normalized.
func (c Catalog) BuildPrompt(sourceText string, platforms []Platform, custom string) string {
	specs := c.specs(platforms)

	var b strings.Builder
	b.WriteString("You are an expert social media content strategist. Repurpose the source content below for each platform listed.\n\n")
	b.WriteString(jsonDirective)
	b.WriteString("\n\nUse exactly this structure:\n")
	writeSkeleton(&b, specs)

	b.WriteString("\nPlatform requirements:\n")
	for _, s := range specs {
		b.WriteString("- ")
		b.WriteString(s.DisplayName)
		b.WriteString(": ")
		b.WriteString(constraintLine(s))
		b.WriteString("\n")
	}

	if custom = strings.TrimSpace(custom); custom != "" {
		b.WriteString("\nAdditional instructions:\n")
		b.WriteString(custom)
		b.WriteString("\n")
	}

	b.WriteString("\nSource content:\n")
	b.WriteString(strings.TrimSpace(sourceText))
	b.WriteString("\n")

	return normalizeWhitespace(b.String())
}

// specs returns the known specs for platforms in canonical order.
func (c Catalog) specs(platforms []Platform) []Spec {
	var out []Spec
	for _, p := range Canonical(platforms) {
		if s, ok := c[p]; ok {
			out = append(out, s)
		}
	}
	return out
}

func writeSkeleton(b *strings.Builder, specs []Spec) {
	b.WriteString("{\n  \"platforms\": {\n")
	for i, s := range specs {
		fmt.Fprintf(b, "    %s: {\n", quote(s.DisplayName))
		for j, f := range s.Fields {
			value := quote(f.Example)
			if f.List {
				value = "[" + value + "]"
			}
			fmt.Fprintf(b, "      %s: %s", quote(f.Name), value)
			if j < len(s.Fields)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString("    }")
		if i < len(specs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  }\n}\n")
}

func constraintLine(s Spec) string {
	var parts []string
	if s.MaxLength > 0 {
		parts = append(parts, fmt.Sprintf("max %d characters", s.MaxLength))
	}
	if s.HashtagCount > 0 {
		noun := "hashtags"
		if s.HashtagCount == 1 {
			noun = "hashtag"
		}
		parts = append(parts, fmt.Sprintf("%d %s", s.HashtagCount, noun))
	}
	if s.Tone != "" {
		parts = append(parts, "tone: "+s.Tone)
	}
	line := strings.Join(parts, "; ")
	if len(s.Guidance) > 0 {
		if line != "" {
			line += ". "
		}
		line += strings.Join(s.Guidance, " ")
	}
	return line
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// normalizeWhitespace trims trailing space on every line, collapses runs of
// blank lines into one and trims the whole text.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
