package source

import (
	"context"
	"fmt"
	"hash/fnv"
)

// DirectEnumerator handles platforms where only single item URLs are
// supported. The URL itself is the media item.
type DirectEnumerator struct {
	platform Platform
}

// NewDirectEnumerator creates a single-item enumerator for platform.
func NewDirectEnumerator(platform Platform) *DirectEnumerator {
	return &DirectEnumerator{platform: platform}
}

func (e *DirectEnumerator) Name() string {
	return string(e.platform)
}

func (e *DirectEnumerator) Enumerate(ctx context.Context, req Request, limit int) ([]MediaItem, error) {
	if !req.ContentType.IsSingleItem() {
		return nil, &EnumerationError{Platform: e.platform, Query: req.Query, Err: ErrListingUnsupported}
	}

	id := LastPathSegment(req.Query)
	if req.ContentType == ContentURL || id == "" {
		// Generic URLs rarely end in a stable id; hash the whole URL instead
		h := fnv.New64a()
		h.Write([]byte(req.Query))
		id = fmt.Sprintf("%x", h.Sum64())
	}

	return []MediaItem{{URL: req.Query, ExternalID: id, Platform: e.platform}}, nil
}
