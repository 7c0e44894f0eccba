package server

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	blankRuns = regexp.MustCompile(`\n{3,}`)
	spaceRuns = regexp.MustCompile(`[ \t\f\v]+`)
)

// cleanFormatting fixes escaping artifacts in generated text: literal "\n"
// becomes a newline, stray backslashes are dropped, runs of blank lines and
// of spaces are collapsed.
func cleanFormatting(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// cleanValue applies cleanFormatting to every string in v's JSON form.
func cleanValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return v
	}
	return cleanTree(generic)
}

func cleanTree(v any) any {
	switch t := v.(type) {
	case string:
		return cleanFormatting(t)
	case []any:
		for i := range t {
			t[i] = cleanTree(t[i])
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = cleanTree(val)
		}
		return t
	default:
		return v
	}
}
