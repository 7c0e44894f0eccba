package source

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/retry"
)

const (
	tiktokProfileSelector = `[data-e2e="user-post-item"] a`
	tiktokSearchSelector  = `[data-e2e="search-card-container"] a`
	tiktokViewsSelector   = `[data-e2e="video-views"]`
	tiktokScrollPause     = 2 * time.Second
)

// tiktokListingJS collects video anchors and their view counters in page order.
const tiktokListingJS = `(args) => {
	const out = [];
	for (const a of document.querySelectorAll(args.selector)) {
		if (!a.href || !a.href.includes('/video/')) continue;
		const card = a.closest('[data-e2e]') || a;
		const views = card.querySelector(args.views);
		out.push({ href: a.href, views: views ? views.textContent.trim() : '' });
	}
	return out;
}`

type tiktokAnchor struct {
	Href  string `json:"href"`
	Views string `json:"views"`
}

// TikTokEnumerator lists TikTok videos from profile and search pages using a
// headless browser. Single video URLs never open a browser.
type TikTokEnumerator struct {
	browser     Browser
	scrolls     int
	navTimeout  time.Duration
	navAttempts int
	navBackoff  time.Duration
}

// NewTikTokEnumerator creates a TikTok enumerator on top of browser.
func NewTikTokEnumerator(browser Browser, scrolls int, navTimeout time.Duration, navAttempts int) *TikTokEnumerator {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	if navAttempts <= 0 {
		navAttempts = 3
	}
	return &TikTokEnumerator{
		browser:     browser,
		scrolls:     scrolls,
		navTimeout:  navTimeout,
		navAttempts: navAttempts,
		navBackoff:  2 * time.Second,
	}
}

func (e *TikTokEnumerator) Name() string {
	return "tiktok"
}

func (e *TikTokEnumerator) Enumerate(ctx context.Context, req Request, limit int) ([]MediaItem, error) {
	if req.ContentType.IsSingleItem() {
		return []MediaItem{{
			URL:        req.Query,
			ExternalID: LastPathSegment(req.Query),
			Platform:   PlatformTikTok,
		}}, nil
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	target, selector := e.listingTarget(req)

	sess, err := e.browser.Open(ctx)
	if err != nil {
		return nil, &EnumerationError{Platform: PlatformTikTok, Query: req.Query, Err: err}
	}
	defer sess.Close()

	_, out := retry.Do(ctx, retry.Policy{
		Attempts: e.navAttempts,
		Backoff:  retry.Fixed(e.navBackoff),
		OnRetry: func(attempt int, err error) {
			log.Printf("[scraper] navigation to %s failed (attempt %d): %v", target, attempt, err)
		},
	}, func(ctx context.Context, attempt int) (struct{}, error) {
		navCtx, cancel := context.WithTimeout(ctx, e.navTimeout)
		defer cancel()
		if err := sess.Navigate(navCtx, target); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, sess.WaitFor(navCtx, selector)
	})
	if out.Err != nil {
		return nil, &EnumerationError{Platform: PlatformTikTok, Query: req.Query, Err: fmt.Errorf("navigation failed after %d attempts: %w", out.Attempts, out.Err)}
	}

	if err := sess.Scroll(ctx, e.scrolls, tiktokScrollPause); err != nil {
		log.Printf("[scraper] scroll stopped early: %v", err)
	}

	var anchors []tiktokAnchor
	args := map[string]string{"selector": selector, "views": tiktokViewsSelector}
	if err := sess.Eval(ctx, tiktokListingJS, args, &anchors); err != nil {
		return nil, &EnumerationError{Platform: PlatformTikTok, Query: req.Query, Err: err}
	}

	items := make([]MediaItem, 0, len(anchors))
	for _, a := range anchors {
		items = append(items, MediaItem{
			URL:        stripFragment(a.Href),
			ExternalID: LastPathSegment(a.Href),
			Platform:   PlatformTikTok,
			Views:      ParseCount(a.Views),
		})
	}
	items = Dedup(items, limit)
	if len(items) == 0 {
		return nil, &EnumerationError{Platform: PlatformTikTok, Query: req.Query, Err: ErrNoResults}
	}

	log.Printf("[scraper] found %d tiktok videos for %s", len(items), req.Query)
	return items, nil
}

// listingTarget returns the page to open and the anchor selector to wait for.
func (e *TikTokEnumerator) listingTarget(req Request) (string, string) {
	switch req.ContentType {
	case ContentProfile:
		return req.Query, tiktokProfileSelector
	case ContentKeyword:
		return "https://www.tiktok.com/search/video?q=" + strings.ReplaceAll(strings.TrimSpace(req.Query), " ", "%20"), tiktokSearchSelector
	default:
		return req.Query, tiktokSearchSelector
	}
}

func stripFragment(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// ParseCount converts abbreviated counters such as "1.2K" or "3M" to integers.
func ParseCount(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	mult := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		mult = 1e3
		s = s[:len(s)-1]
	case "M":
		mult = 1e6
		s = s[:len(s)-1]
	case "B":
		mult = 1e9
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f*mult + 0.5)
}
