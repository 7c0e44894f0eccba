// Package repurpose turns source text into platform-specific social content
// with a single generation call per request.
package repurpose

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Dev-derah/simple-content-ai/internal/core/ai/generator"
	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/retry"
)

// ErrNoContent is returned when there is no source text to repurpose.
var ErrNoContent = errors.New("no content provided for repurposing")

// GenerationError reports that every generation attempt failed.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Request is one repurposing job.
type Request struct {
	SourceText         string
	Platforms          []Platform
	CustomInstructions string
}

// SourceInfo records where the source text came from.
type SourceInfo struct {
	Type        string `json:"type,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
	Platform    string `json:"platform,omitempty"`
	ScrapedAt   string `json:"scrapedAt,omitempty"`
	ReceivedAt  string `json:"receivedAt,omitempty"`
}

// UserProvided describes text submitted directly by a caller.
func UserProvided(at time.Time) SourceInfo {
	return SourceInfo{Type: "user-provided", ReceivedAt: at.UTC().Format(time.RFC3339)}
}

// Scraped describes text transcribed from a scraped media item.
func Scraped(url, platform string, at time.Time) SourceInfo {
	return SourceInfo{OriginalURL: url, Platform: platform, ScrapedAt: at.UTC().Format(time.RFC3339)}
}

type ContentMetadata struct {
	Language    string   `json:"language"`
	ContentType string   `json:"contentType"`
	Length      int      `json:"length"`
	Hashtags    []string `json:"hashtags"`
}

type Metadata struct {
	Source      SourceInfo      `json:"source"`
	Content     ContentMetadata `json:"contentMetadata"`
	Model       string          `json:"model,omitempty"`
	Usage       generator.Usage `json:"usage"`
	GeneratedAt string          `json:"generatedAt"`
}

// Result is the outcome of Repurpose. Content has exactly one entry per
// requested platform.
type Result struct {
	Metadata Metadata             `json:"metadata"`
	Content  map[Platform]Content `json:"content"`
}

// Succeeded lists the platforms that did not fall back to the sentinel.
func (r *Result) Succeeded() []Platform {
	var out []Platform
	for _, p := range canonicalOrder {
		if c, ok := r.Content[p]; ok && !c.Failed {
			out = append(out, p)
		}
	}
	return out
}

// Engine runs prompt building, generation and response parsing.
type Engine struct {
	gen      generator.Generator
	catalog  Catalog
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewEngine creates an engine around gen using the generation settings and
// platform overrides from cfg.
func NewEngine(gen generator.Generator, cfg config.GenerationConfig, overrides map[string]config.PlatformConfig) *Engine {
	e := &Engine{
		gen:      gen,
		catalog:  DefaultCatalog().WithOverrides(overrides),
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		timeout:  cfg.Timeout,
		now:      time.Now,
	}
	if e.attempts < 1 {
		e.attempts = 3
	}
	if cfg.RatePerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return e
}

// Catalog returns the platform specs the engine prompts with.
func (e *Engine) Catalog() Catalog { return e.catalog }

// Generate calls the model up to the configured number of attempts with an
// incremental backoff between them.
func (e *Engine) Generate(ctx context.Context, prompt string) (*generator.Result, error) {
	policy := retry.Policy{
		Attempts: e.attempts,
		Backoff:  retry.Linear(e.backoff),
		OnRetry: func(attempt int, err error) {
			log.Printf("[repurpose] generation attempt %d/%d failed: %v", attempt, e.attempts, err)
		},
	}
	res, out := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*generator.Result, error) {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, retry.Permanent(err)
			}
		}
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
		r, err := e.gen.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, errors.New("empty response")
		}
		return r, nil
	})
	if out.Err != nil {
		return nil, &GenerationError{Attempts: out.Attempts, Err: out.Err}
	}
	return res, nil
}

// Repurpose generates content for every requested platform. Parse problems
// never fail the call; only missing input or exhausted generation do.
func (e *Engine) Repurpose(ctx context.Context, req Request, source SourceInfo) (*Result, error) {
	text := strings.TrimSpace(req.SourceText)
	if text == "" {
		return nil, ErrNoContent
	}
	platforms := Canonical(req.Platforms)
	if len(platforms) == 0 {
		return nil, errors.New("no platforms requested")
	}

	prompt := e.catalog.BuildPrompt(text, platforms, req.CustomInstructions)
	log.Printf("[repurpose] generating for %d platform(s) with %s", len(platforms), e.gen.Name())
	gen, err := e.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	content := e.catalog.ParseResponse(gen.Text, platforms)
	return &Result{
		Metadata: Metadata{
			Source:      source,
			Content:     describe(text),
			Model:       gen.Model,
			Usage:       gen.Usage,
			GeneratedAt: e.now().UTC().Format(time.RFC3339),
		},
		Content: content,
	}, nil
}

var hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// describe derives content metadata from the source text.
func describe(text string) ContentMetadata {
	tags := []string{}
	seen := map[string]bool{}
	for _, t := range hashtagRe.FindAllString(text, -1) {
		if k := strings.ToLower(t); !seen[k] {
			seen[k] = true
			tags = append(tags, t)
		}
	}
	return ContentMetadata{
		Language:    "en",
		ContentType: "text",
		Length:      len([]rune(text)),
		Hashtags:    tags,
	}
}
