package repurpose

import "strings"

// normalize turns recovered fields into platform content. It reports false
// when nothing usable was recovered.
func normalize(spec Spec, f fields) (Content, bool) {
	switch spec.Kind {
	case KindThread:
		return normalizeThread(spec, f)
	case KindScript:
		return normalizeScript(spec, f)
	default:
		return normalizeText(spec, f)
	}
}

// normalizeText joins the string fields in order, followed by hashtags, with
// blank lines between parts.
func normalizeText(spec Spec, f fields) (Content, bool) {
	var parts []string
	for _, field := range spec.Fields {
		if field.List {
			if tags := hashtagLine(f.list[field.Name]); tags != "" {
				parts = append(parts, tags)
			}
			continue
		}
		if s := strings.TrimSpace(f.str[field.Name]); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return Content{}, false
	}
	return Content{Kind: KindText, Text: strings.Join(parts, "\n\n")}, true
}

func normalizeThread(spec Spec, f fields) (Content, bool) {
	var tweets []string
	for _, field := range spec.Fields {
		if !field.List {
			continue
		}
		for _, t := range f.list[field.Name] {
			if t = strings.TrimSpace(t); t != "" {
				tweets = append(tweets, t)
			}
		}
		if len(tweets) == 0 {
			if s := strings.TrimSpace(f.str[field.Name]); s != "" {
				tweets = append(tweets, s)
			}
		}
	}
	if len(tweets) == 0 {
		return Content{}, false
	}
	return Content{Kind: KindThread, Text: strings.Join(tweets, "\n"), Thread: tweets}, true
}

func normalizeScript(spec Spec, f fields) (Content, bool) {
	caption := strings.TrimSpace(f.str["caption"])
	script := strings.TrimSpace(f.str["script"])
	if caption == "" && script == "" {
		return Content{}, false
	}
	if caption == "" {
		caption = Sentinel
	}
	if script == "" {
		script = Sentinel
	}
	return Content{Kind: KindScript, Caption: caption, Script: script}, true
}

// hashtagLine renders tags space separated, each with a single leading '#'.
func hashtagLine(tags []string) string {
	var out []string
	for _, t := range tags {
		for _, word := range strings.Fields(t) {
			word = strings.TrimLeft(word, "#")
			word = strings.Trim(word, ",;")
			if word != "" {
				out = append(out, "#"+word)
			}
		}
	}
	return strings.Join(out, " ")
}
