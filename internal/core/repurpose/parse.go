package repurpose

import (
	"encoding/json"
	"log"
	"sort"
	"strings"
)

// fields holds the raw values recovered for one platform, from either the
// strict JSON path or the regex fallback.
type fields struct {
	str  map[string]string
	list map[string][]string
}

func newFields() fields {
	return fields{str: map[string]string{}, list: map[string][]string{}}
}

func (f fields) empty() bool {
	for _, v := range f.str {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	for _, v := range f.list {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// ParseResponse parses a model response with the default catalog.
func ParseResponse(raw string, platforms []Platform) map[Platform]Content {
	return DefaultCatalog().ParseResponse(raw, platforms)
}

// ParseResponse never fails. Every requested platform gets exactly one entry;
// platforms that cannot be recovered get the sentinel.
func (c Catalog) ParseResponse(raw string, platforms []Platform) (out map[Platform]Content) {
	requested := Canonical(platforms)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[repurpose] parse panic: %v", r)
			out = c.allFailed(requested)
		}
	}()

	out = make(map[Platform]Content, len(requested))
	text := stripFences(raw)
	blocks, strictOK := strictBlocks(text)
	if !strictOK {
		log.Printf("[repurpose] response is not valid JSON, using field fallback")
	}

	for _, p := range requested {
		spec, known := c[p]
		if !known {
			out[p] = failed(KindText)
			continue
		}
		var got fields
		if strictOK {
			if block, ok := findBlock(blocks, spec); ok {
				got = decodeFields(block, spec)
			}
		}
		if got.str == nil || got.empty() {
			got = fallbackFields(text, spec, c)
		}
		content, ok := normalize(spec, got)
		if !ok {
			content = failed(spec.Kind)
		}
		out[p] = content
	}
	return out
}

func (c Catalog) allFailed(platforms []Platform) map[Platform]Content {
	out := make(map[Platform]Content, len(platforms))
	for _, p := range platforms {
		kind := KindText
		if s, ok := c[p]; ok {
			kind = s.Kind
		}
		out[p] = failed(kind)
	}
	return out
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// strictBlocks decodes the platforms object. When the text has prose around
// the JSON it retries on the outermost braces.
func strictBlocks(text string) (map[string]json.RawMessage, bool) {
	if blocks, ok := decodePlatforms(text); ok {
		return blocks, true
	}
	start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return decodePlatforms(text[start : end+1])
	}
	return nil, false
}

func decodePlatforms(text string) (map[string]json.RawMessage, bool) {
	var doc struct {
		Platforms map[string]json.RawMessage `json:"platforms"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil || doc.Platforms == nil {
		return nil, false
	}
	return doc.Platforms, true
}

func findBlock(blocks map[string]json.RawMessage, spec Spec) (json.RawMessage, bool) {
	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if spec.matches(strings.TrimSpace(k)) {
			return blocks[k], true
		}
	}
	return nil, false
}

// decodeFields pulls the spec's fields out of a platform object, tolerating
// lists where strings are expected and the reverse.
func decodeFields(block json.RawMessage, spec Spec) fields {
	got := newFields()
	var obj map[string]any
	if err := json.Unmarshal(block, &obj); err != nil {
		// Some models return the content itself instead of an object.
		var s string
		if json.Unmarshal(block, &s) == nil && len(spec.Fields) > 0 {
			if spec.Fields[0].List {
				got.list[spec.Fields[0].Name] = []string{s}
			} else {
				got.str[spec.Fields[0].Name] = s
			}
		}
		return got
	}
	for _, f := range spec.Fields {
		v, ok := lookupKey(obj, f.Name)
		if !ok {
			continue
		}
		if f.List {
			got.list[f.Name] = toList(v)
		} else {
			got.str[f.Name] = toText(v)
		}
	}
	return got
}

func lookupKey(obj map[string]any, name string) (any, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	camel := toCamel(name)
	for k, v := range obj {
		if strings.EqualFold(k, name) || strings.EqualFold(k, camel) {
			return v, true
		}
	}
	return nil, false
}

func toCamel(name string) string {
	parts := strings.Split(name, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func toList(v any) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s := strings.TrimSpace(toText(e)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := toText(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// scriptKeys orders the sections of a script object.
var scriptKeys = []string{"hook", "intro", "body", "main_content", "content", "call_to_action", "outro"}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		return strings.Join(toList(t), "\n")
	case map[string]any:
		var parts []string
		used := map[string]bool{}
		for _, k := range scriptKeys {
			if val, ok := lookupKey(t, k); ok {
				for key := range t {
					if strings.EqualFold(key, k) || strings.EqualFold(key, toCamel(k)) {
						used[key] = true
					}
				}
				if s := strings.TrimSpace(toText(val)); s != "" {
					parts = append(parts, s)
				}
			}
		}
		rest := make([]string, 0, len(t))
		for k := range t {
			if !used[k] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		for _, k := range rest {
			if s := strings.TrimSpace(toText(t[k])); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
