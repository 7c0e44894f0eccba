package source

import (
	"fmt"
	"sort"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

// Factory builds an enumerator from configuration.
type Factory func(cfg *config.Config) (Enumerator, error)

// Registry maps platforms to enumerator factories.
type Registry struct {
	factories map[Platform]Factory
	// keywordPlatform handles generic keyword searches
	keywordPlatform Platform
}

// NewRegistry returns an empty registry. Generic keywords go to keywordPlatform.
func NewRegistry(keywordPlatform Platform) *Registry {
	return &Registry{factories: map[Platform]Factory{}, keywordPlatform: keywordPlatform}
}

// Register adds or replaces the factory for a platform.
func (r *Registry) Register(p Platform, f Factory) {
	r.factories[p] = f
}

// Platforms lists registered platforms in sorted order.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// For returns an enumerator able to serve req.
func (r *Registry) For(req Request, cfg *config.Config) (Enumerator, error) {
	p := req.Platform
	if p == PlatformGeneric && req.ContentType == ContentKeyword {
		p = r.keywordPlatform
	}
	f, ok := r.factories[p]
	if !ok {
		return nil, &EnumerationError{Platform: req.Platform, Query: req.Query, Err: fmt.Errorf("%w %q", ErrUnknownPlatform, p)}
	}
	return f(cfg)
}

// DefaultRegistry registers every built-in enumerator.
func DefaultRegistry() *Registry {
	r := NewRegistry(PlatformYouTube)

	r.Register(PlatformTikTok, func(cfg *config.Config) (Enumerator, error) {
		b := &RodBrowser{Headless: cfg.Scraper.IsHeadless(), Bin: cfg.Scraper.BrowserBin}
		return NewTikTokEnumerator(b, cfg.Scraper.ScrollCount, cfg.Scraper.NavTimeout, cfg.Scraper.NavAttempts), nil
	})
	r.Register(PlatformYouTube, func(cfg *config.Config) (Enumerator, error) {
		return NewYouTubeEnumerator(ExecRunner{}, cfg.Download.YtDlpBin, ValidCookiesFile(cfg.Download.YouTubeCookies), cfg.Download.Timeout), nil
	})
	for _, p := range []Platform{PlatformInstagram, PlatformTwitter, PlatformGeneric} {
		p := p
		r.Register(p, func(*config.Config) (Enumerator, error) {
			return NewDirectEnumerator(p), nil
		})
	}
	return r
}
