package repurpose

import (
	"regexp"
	"strconv"
	"strings"
)

const quotedString = `"((?:[^"\\]|\\.)*)"`

var listItem = regexp.MustCompile(quotedString)

// fallbackFields recovers a platform's fields from text that is not valid
// JSON. It scans only the platform's own sub-block so that fields with the
// same name on other platforms are not picked up.
func fallbackFields(text string, spec Spec, cat Catalog) fields {
	got := newFields()
	block, ok := subBlock(text, spec, cat)
	if !ok {
		return got
	}
	for _, f := range spec.Fields {
		if f.List {
			if items := findList(block, f.Name); len(items) > 0 {
				got.list[f.Name] = items
			} else if s, ok := findString(block, f.Name); ok {
				got.list[f.Name] = []string{s}
			}
			continue
		}
		if s, ok := findString(block, f.Name); ok {
			got.str[f.Name] = s
		} else if items := findList(block, f.Name); len(items) > 0 {
			got.str[f.Name] = strings.Join(items, "\n")
		}
	}
	return got
}

// subBlock returns the text between the platform's label and the next
// label of any other platform.
func subBlock(text string, spec Spec, cat Catalog) (string, bool) {
	start, bodyStart := -1, -1
	for _, name := range spec.names() {
		if loc := labelPattern(name).FindStringIndex(text); loc != nil && (start < 0 || loc[0] < start) {
			start, bodyStart = loc[0], loc[1]
		}
	}
	if start < 0 {
		return "", false
	}
	end := len(text)
	for key, other := range cat {
		if key == spec.Key {
			continue
		}
		for _, name := range other.names() {
			if loc := labelPattern(name).FindStringIndex(text[bodyStart:]); loc != nil && bodyStart+loc[0] < end {
				end = bodyStart + loc[0]
			}
		}
	}
	return text[bodyStart:end], true
}

func labelPattern(name string) *regexp.Regexp {
	n := regexp.QuoteMeta(name)
	if len(name) <= 2 {
		return regexp.MustCompile(`(?i)"` + n + `"\s*:`)
	}
	return regexp.MustCompile(`(?i)(?:"` + n + `"|\b` + n + `\b)\s*:`)
}

func keyPattern(name string) string {
	names := regexp.QuoteMeta(name)
	if camel := toCamel(name); camel != name {
		names += "|" + regexp.QuoteMeta(camel)
	}
	return `(?i)"(?:` + names + `)"\s*:\s*`
}

func findString(block, name string) (string, bool) {
	if m := regexp.MustCompile(keyPattern(name) + quotedString).FindStringSubmatch(block); m != nil {
		return unescape(m[1]), true
	}
	// A response cut off mid-value still yields the text up to the cut.
	if m := regexp.MustCompile(keyPattern(name) + `"((?:[^"\\]|\\.)*)$`).FindStringSubmatch(strings.TrimSpace(block)); m != nil {
		if s := strings.TrimSpace(unescape(m[1])); s != "" {
			return s, true
		}
	}
	return "", false
}

func findList(block, name string) []string {
	m := regexp.MustCompile(`(?s)` + keyPattern(name) + `\[([^\]]*)`).FindStringSubmatch(block)
	if m == nil {
		return nil
	}
	var out []string
	for _, item := range listItem.FindAllStringSubmatch(m[1], -1) {
		if s := strings.TrimSpace(unescape(item[1])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
	return r.Replace(s)
}
