// Package input classifies raw user input (a social URL or a keyword) into a
// platform, a content type and a canonical query.
package input

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

// ErrInvalidInput means the input matched no known pattern.
var ErrInvalidInput = errors.New("invalid input")

// InputValidationError carries the rejected input.
type InputValidationError struct {
	Input string
	Err   error
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("%v: %q is not a supported URL or keyword", e.Err, e.Input)
}

func (e *InputValidationError) Unwrap() error { return e.Err }

// Classification is the result of Classify.
type Classification struct {
	Platform    source.Platform
	ContentType source.ContentType
	// Sanitized is the trimmed input with trailing slashes removed, or the
	// canonical form of the URL when one exists.
	Sanitized string
}

type rule struct {
	contentType source.ContentType
	re          *regexp.Regexp
	// canonical rewrites the sanitized input; nil leaves it unchanged
	canonical func(m []string, s string) string
}

type platformRules struct {
	platform source.Platform
	// domain must appear in the input before any rule is tried
	domain *regexp.Regexp
	rules  []rule
}

// Checked in order; the first platform and rule to match wins.
var platforms = []platformRules{
	{
		platform: source.PlatformTikTok,
		domain:   regexp.MustCompile(`(?i)(^|[/.])tiktok\.com`),
		rules: []rule{
			{contentType: source.ContentProfile, re: regexp.MustCompile(`(?i)^https://(www\.)?tiktok\.com/@[^/?#]+$`)},
			{contentType: source.ContentVideo, re: regexp.MustCompile(`(?i)^https://(www\.)?tiktok\.com/@[^/]+/video/(\d+)`),
				canonical: func(m []string, s string) string { return stripQuery(s) }},
			{contentType: source.ContentSearch, re: regexp.MustCompile(`(?i)^https://(www\.)?tiktok\.com/(search(/video)?\?q=|tag/)[^<>%$]+`)},
		},
	},
	{
		platform: source.PlatformYouTube,
		domain:   regexp.MustCompile(`(?i)(^|[/.])(youtube\.com|youtu\.be)`),
		rules: []rule{
			{contentType: source.ContentChannel, re: regexp.MustCompile(`(?i)^https://(www\.)?youtube\.com/(@[^/?#]+|channel/[\w-]+|c/[^/?#]+)(/videos)?$`)},
			{contentType: source.ContentVideo, re: regexp.MustCompile(`(?i)^(https://)?(www\.|m\.)?youtube\.com/watch\?(.*&)?v=([\w-]{6,})`),
				canonical: func(m []string, s string) string { return "https://www.youtube.com/watch?v=" + m[4] }},
			{contentType: source.ContentVideo, re: regexp.MustCompile(`(?i)^(https://)?youtu\.be/([\w-]{6,})`),
				canonical: func(m []string, s string) string { return "https://www.youtube.com/watch?v=" + m[2] }},
			{contentType: source.ContentVideo, re: regexp.MustCompile(`(?i)^(https://)?(www\.)?youtube\.com/shorts/([\w-]{6,})`),
				canonical: func(m []string, s string) string { return "https://www.youtube.com/shorts/" + m[3] }},
			{contentType: source.ContentSearch, re: regexp.MustCompile(`(?i)^https://(www\.)?youtube\.com/results\?search_query=[^<>%$]+`)},
		},
	},
	{
		platform: source.PlatformInstagram,
		domain:   regexp.MustCompile(`(?i)(^|[/.])instagram\.com`),
		rules: []rule{
			{contentType: source.ContentPost, re: regexp.MustCompile(`(?i)^https://(www\.)?instagram\.com/p/[\w-]+`),
				canonical: func(m []string, s string) string { return stripQuery(s) }},
			{contentType: source.ContentReel, re: regexp.MustCompile(`(?i)^https://(www\.)?instagram\.com/reels?/[\w-]+`),
				canonical: func(m []string, s string) string { return stripQuery(s) }},
			{contentType: source.ContentProfile, re: regexp.MustCompile(`(?i)^https://(www\.)?instagram\.com/[\w.]+$`)},
		},
	},
	{
		platform: source.PlatformTwitter,
		domain:   regexp.MustCompile(`(?i)(^|[/.])(twitter\.com|x\.com)`),
		rules: []rule{
			{contentType: source.ContentTweet, re: regexp.MustCompile(`(?i)^https://(www\.)?(twitter|x)\.com/[^/]+/status/\d+`),
				canonical: func(m []string, s string) string { return stripQuery(s) }},
			{contentType: source.ContentProfile, re: regexp.MustCompile(`(?i)^https://(www\.)?(twitter|x)\.com/\w+$`)},
		},
	},
}

var (
	genericKeyword = regexp.MustCompile(`^[\w\s-]{3,50}$`)
	genericURL     = regexp.MustCompile(`(?i)^https?://[\w-]+(\.[\w-]+)+(:\d+)?(/\S*)?$`)
)

// Classify sanitizes raw and matches it against the platform pattern sets in
// priority order, then the generic keyword and generic URL patterns.
func Classify(raw string) (Classification, error) {
	s := Sanitize(raw)
	if s == "" {
		return Classification{}, &InputValidationError{Input: raw, Err: ErrInvalidInput}
	}

	for _, p := range platforms {
		if !p.domain.MatchString(s) {
			continue
		}
		for _, r := range p.rules {
			m := r.re.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			out := Classification{Platform: p.platform, ContentType: r.contentType, Sanitized: s}
			if r.canonical != nil {
				out.Sanitized = r.canonical(m, s)
			}
			return out, nil
		}
	}

	if genericKeyword.MatchString(s) {
		return Classification{Platform: source.PlatformGeneric, ContentType: source.ContentKeyword, Sanitized: s}, nil
	}
	if genericURL.MatchString(s) {
		return Classification{Platform: source.PlatformGeneric, ContentType: source.ContentURL, Sanitized: s}, nil
	}

	return Classification{}, &InputValidationError{Input: raw, Err: ErrInvalidInput}
}

// Sanitize trims whitespace and trailing slashes.
func Sanitize(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ResolveRequest classifies raw and builds the source request for it.
func ResolveRequest(raw string, limit int) (source.Request, error) {
	c, err := Classify(raw)
	if err != nil {
		return source.Request{}, err
	}
	return source.Request{
		RawInput:    raw,
		Platform:    c.Platform,
		ContentType: c.ContentType,
		Query:       c.Sanitized,
		Limit:       limit,
	}, nil
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
