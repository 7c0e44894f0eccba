package repurpose

import (
	"fmt"
	"strings"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

// Platform is an output platform key.
type Platform string

const (
	LinkedIn  Platform = "linkedin"
	Twitter   Platform = "twitter"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Instagram Platform = "instagram"
)

// canonicalOrder fixes the order platforms appear in prompts and results.
var canonicalOrder = []Platform{LinkedIn, Twitter, TikTok, YouTube, Instagram}

// Kind is the shape of a platform's content.
type Kind int

const (
	KindText Kind = iota
	KindThread
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindThread:
		return "thread"
	case KindScript:
		return "script"
	default:
		return "text"
	}
}

// Field is one named value the model must fill in for a platform.
type Field struct {
	Name    string
	List    bool
	Example string
}

// Spec describes one output platform: its prompt skeleton, constraints and
// how its structured fields are normalized.
type Spec struct {
	Key          Platform
	DisplayName  string
	Aliases      []string
	Kind         Kind
	Fields       []Field
	MaxLength    int
	HashtagCount int
	Tone         string
	Guidance     []string
}

// Catalog holds the specs for every known platform.
type Catalog map[Platform]Spec

// DefaultCatalog returns the built-in platform specs.
func DefaultCatalog() Catalog {
	return Catalog{
		LinkedIn: {
			Key:         LinkedIn,
			DisplayName: "LinkedIn",
			Kind:        KindText,
			Fields: []Field{
				{Name: "hook", Example: "Bold opening statement, stat or hot take"},
				{Name: "storytelling", Example: "Relatable story or case study"},
				{Name: "value", Example: "Actionable insight or takeaway"},
				{Name: "engagement_question", Example: "Thought-provoking closing question"},
				{Name: "hashtags", List: true, Example: "#hashtag"},
			},
			MaxLength:    2000,
			HashtagCount: 3,
			Tone:         "professional",
			Guidance: []string{
				"Open with a hook that stops the scroll.",
				"Tell a short story, then deliver concrete value.",
				"End with a question that invites comments.",
			},
		},
		Twitter: {
			Key:          Twitter,
			DisplayName:  "Twitter",
			Aliases:      []string{"Twitter/X", "X"},
			Kind:         KindThread,
			Fields:       []Field{{Name: "tweets", List: true, Example: "Tweet text"}},
			MaxLength:    280,
			HashtagCount: 1,
			Tone:         "punchy",
			Guidance: []string{
				"Use a single tweet for short content and a thread when the content needs depth.",
				"The first tweet must be a scroll-stopper.",
				"Each tweet should invite replies or retweets.",
			},
		},
		TikTok: {
			Key:         TikTok,
			DisplayName: "TikTok",
			Kind:        KindScript,
			Fields: []Field{
				{Name: "caption", Example: "Curiosity-driven caption with emojis and hashtags"},
				{Name: "script", Example: "[Hook] ... [Main Content] ... [Call to Action] ..."},
			},
			MaxLength:    150,
			HashtagCount: 5,
			Tone:         "energetic, high emoji use",
			Guidance: []string{
				"The caption limit applies to the caption only.",
				"The script runs 30-60 seconds with a hook, main content and a call to action.",
			},
		},
		YouTube: {
			Key:         YouTube,
			DisplayName: "YouTube",
			Kind:        KindText,
			Fields: []Field{
				{Name: "intro", Example: "Hook that grabs attention in 3 seconds"},
				{Name: "main_content", Example: "Story-driven main section with scene directions"},
				{Name: "outro", Example: "Call to like and subscribe"},
			},
			Tone: "conversational",
			Guidance: []string{
				"Write a 30-60 second script.",
			},
		},
		Instagram: {
			Key:         Instagram,
			DisplayName: "Instagram",
			Kind:        KindText,
			Fields: []Field{
				{Name: "caption", Example: "Caption with a strong first line"},
				{Name: "hashtags", List: true, Example: "#hashtag"},
			},
			MaxLength:    2200,
			HashtagCount: 10,
			Tone:         "friendly",
			Guidance: []string{
				"Front-load the first line; it is all most readers see.",
			},
		},
	}
}

// WithOverrides returns a copy of c with configured limits applied.
func (c Catalog) WithOverrides(overrides map[string]config.PlatformConfig) Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	for key, o := range overrides {
		spec, ok := out[Platform(strings.ToLower(key))]
		if !ok {
			continue
		}
		if o.MaxLength > 0 {
			spec.MaxLength = o.MaxLength
		}
		if o.HashtagCount > 0 {
			spec.HashtagCount = o.HashtagCount
		}
		if o.Tone != "" {
			spec.Tone = o.Tone
		}
		out[spec.Key] = spec
	}
	return out
}

// Canonical deduplicates platforms and sorts known ones into canonical order.
// Unknown platforms keep their relative order after the known ones.
func Canonical(platforms []Platform) []Platform {
	seen := make(map[Platform]bool, len(platforms))
	var out []Platform
	for _, p := range canonicalOrder {
		for _, q := range platforms {
			if Platform(strings.ToLower(string(q))) == p && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	for _, q := range platforms {
		q = Platform(strings.ToLower(string(q)))
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// ParsePlatforms converts user-supplied names into platform keys. It accepts
// keys and display names in any case.
func ParsePlatforms(names []string) ([]Platform, error) {
	cat := DefaultCatalog()
	var out []Platform
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		p, ok := cat.lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown platform %q (supported: %s)", n, strings.Join(AllPlatformNames(), ", "))
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no platforms requested")
	}
	return Canonical(out), nil
}

// AllPlatformNames lists the platform keys in canonical order.
func AllPlatformNames() []string {
	out := make([]string, len(canonicalOrder))
	for i, p := range canonicalOrder {
		out[i] = string(p)
	}
	return out
}

// lookup matches a key, display name or alias case-insensitively.
func (c Catalog) lookup(name string) (Platform, bool) {
	for _, p := range canonicalOrder {
		spec := c[p]
		if spec.matches(name) {
			return p, true
		}
	}
	return "", false
}

func (s Spec) matches(name string) bool {
	if strings.EqualFold(name, string(s.Key)) || strings.EqualFold(name, s.DisplayName) {
		return true
	}
	for _, a := range s.Aliases {
		if strings.EqualFold(name, a) {
			return true
		}
	}
	return false
}

// names returns every label the model might use for this platform, longest first.
func (s Spec) names() []string {
	names := append([]string{s.DisplayName}, s.Aliases...)
	if !strings.EqualFold(string(s.Key), s.DisplayName) {
		names = append(names, string(s.Key))
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && len(names[j]) > len(names[j-1]); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}
