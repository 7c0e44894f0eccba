package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultLimit is the number of items a listing request returns when no limit is given.
const DefaultLimit = 10

// Platform identifies a source platform.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformGeneric   Platform = "generic"
)

// ContentType is what kind of thing a source identifier points at.
type ContentType string

const (
	ContentProfile ContentType = "profile"
	ContentChannel ContentType = "channel"
	ContentSearch  ContentType = "search"
	ContentKeyword ContentType = "keyword"
	ContentVideo   ContentType = "video"
	ContentPost    ContentType = "post"
	ContentReel    ContentType = "reel"
	ContentTweet   ContentType = "tweet"
	ContentURL     ContentType = "url"
)

// IsSingleItem reports whether the content type names exactly one media item.
func (c ContentType) IsSingleItem() bool {
	switch c {
	case ContentVideo, ContentPost, ContentReel, ContentTweet, ContentURL:
		return true
	}
	return false
}

var contentTypes = []ContentType{
	ContentProfile, ContentChannel, ContentSearch, ContentKeyword,
	ContentVideo, ContentPost, ContentReel, ContentTweet, ContentURL,
}

// ParseContentType returns the content type named by s, ignoring case.
func ParseContentType(s string) (ContentType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range contentTypes {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrContentType, s)
}

// WithContentType returns a copy of r with its content type replaced. A
// single item cannot be overridden into a listing, nor a listing into a
// single item.
func (r Request) WithContentType(c ContentType) (Request, error) {
	if c.IsSingleItem() != r.ContentType.IsSingleItem() {
		return r, fmt.Errorf("%w: %s input cannot be processed as %s", ErrContentType, r.ContentType, c)
	}
	r.ContentType = c
	return r, nil
}

// Request is a classified source identifier. It is built once by the input
// resolver and not modified afterwards.
type Request struct {
	RawInput    string
	Platform    Platform
	ContentType ContentType
	// Query is the canonical URL or keyword
	Query string
	Limit int
}

// MediaItem is one enumerated video.
type MediaItem struct {
	URL        string   `json:"url"`
	ExternalID string   `json:"externalId"`
	Platform   Platform `json:"platform"`
	Title      string   `json:"title,omitempty"`
	Views      int64    `json:"views,omitempty"`
	UploadDate string   `json:"uploadDate,omitempty"`
}

// Enumerator turns a Request into concrete media items.
type Enumerator interface {
	// Name returns the enumerator name (e.g., "tiktok")
	Name() string

	// Enumerate returns at most limit items, in discovery order, with unique
	// external ids. Single-item requests yield exactly one item.
	Enumerate(ctx context.Context, req Request, limit int) ([]MediaItem, error)
}

var (
	// ErrNoResults means a listing page produced zero candidates.
	ErrNoResults = errors.New("no media items found")

	// ErrListingUnsupported means the platform can only resolve single items.
	ErrListingUnsupported = errors.New("listing not supported for this platform")

	// ErrUnknownPlatform means no enumerator is registered for the platform.
	ErrUnknownPlatform = errors.New("no enumerator for platform")

	// ErrContentType means a requested content type is unknown or cannot
	// apply to the input.
	ErrContentType = errors.New("unsupported content type")
)

// EnumerationError is returned when a source cannot be turned into media items.
type EnumerationError struct {
	Platform Platform
	Query    string
	Err      error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s %q: %v", e.Platform, e.Query, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// LastPathSegment returns the final path element of rawURL with any query or
// fragment removed.
func LastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		s := rawURL
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimRight(s, "/")
		if i := strings.LastIndex(s, "/"); i >= 0 {
			return s[i+1:]
		}
		return s
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Dedup removes items with a repeated external id, keeping the first
// occurrence, and truncates to limit when limit > 0.
func Dedup(items []MediaItem, limit int) []MediaItem {
	seen := make(map[string]bool, len(items))
	out := make([]MediaItem, 0, len(items))
	for _, it := range items {
		if it.ExternalID == "" || seen[it.ExternalID] {
			continue
		}
		seen[it.ExternalID] = true
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
