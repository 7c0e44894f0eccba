// Package pipeline runs sources through acquisition, transcription and
// repurposing.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/ai/output"
	"github.com/Dev-derah/simple-content-ai/internal/core/ai/transcriber"
	"github.com/Dev-derah/simple-content-ai/internal/core/cache"
	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/input"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
	"github.com/Dev-derah/simple-content-ai/internal/core/storage"
)

// Sources picks an enumerator for a request.
type Sources interface {
	For(req source.Request, cfg *config.Config) (source.Enumerator, error)
}

// Downloader fetches a media item into destDir.
type Downloader interface {
	Download(ctx context.Context, item source.MediaItem, destDir string) (string, error)
}

// Extractor pulls an audio track out of a video.
type Extractor interface {
	Extract(ctx context.Context, videoPath, destDir string) (string, error)
}

// Repurposer generates platform content from text.
type Repurposer interface {
	Repurpose(ctx context.Context, req repurpose.Request, src repurpose.SourceInfo) (*repurpose.Result, error)
}

// metadataLookup is implemented by enumerators that can fetch details for a
// single item while it downloads.
type metadataLookup interface {
	Lookup(ctx context.Context, item source.MediaItem) (source.MediaItem, error)
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Sources     Sources
	Downloader  Downloader
	Extractor   Extractor
	Transcriber transcriber.Transcriber
	Repurposer  Repurposer
	Cache       cache.Store
}

// Options control the repurposing step.
type Options struct {
	Platforms          []repurpose.Platform
	CustomInstructions string

	// OnEnumerated and OnStatus report progress. OnStatus is called from
	// worker goroutines.
	OnEnumerated func(items []source.MediaItem)
	OnStatus     func(index int, status Status)
}

// ItemResult is the outcome for one enumerated item.
type ItemResult struct {
	Index  int               `json:"index"`
	Media  *AcquiredMedia    `json:"media"`
	Result *repurpose.Result `json:"result,omitempty"`
	Err    error             `json:"-"`
}

// Failed reports whether the item did not produce content.
func (r ItemResult) Failed() bool { return r.Err != nil }

// Orchestrator runs the full pipeline.
type Orchestrator struct {
	cfg     *config.Config
	deps    Deps
	root    string
	workers int
	now     func() time.Time
}

// New creates an orchestrator. Staging folders are created under cfg.DownloadDir.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	workers := cfg.Pipeline.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		root:    cfg.DownloadDir,
		workers: workers,
		now:     time.Now,
	}
}

// Process resolves raw input and runs ProcessSource on it.
func (o *Orchestrator) Process(ctx context.Context, raw string, limit int, opts Options) ([]ItemResult, error) {
	req, err := input.ResolveRequest(raw, limit)
	if err != nil {
		return nil, err
	}
	return o.ProcessSource(ctx, req, limit, opts)
}

// ProcessSource enumerates req and processes every item. Per-item failures are
// recorded on the item; only enumeration and staging errors are returned.
// Results are in enumeration order.
func (o *Orchestrator) ProcessSource(ctx context.Context, req source.Request, limit int, opts Options) ([]ItemResult, error) {
	limit = o.limit(req, limit)
	opts = o.withDefaults(opts)

	enum, err := o.deps.Sources.For(req, o.cfg)
	if err != nil {
		return nil, err
	}
	items, err := enum.Enumerate(ctx, req, limit)
	if err != nil {
		return nil, err
	}
	log.Printf("[pipeline] %s: %d item(s) from %s", req.Query, len(items), enum.Name())
	if opts.OnEnumerated != nil {
		opts.OnEnumerated(items)
	}

	inst, err := storage.NewInstance(o.root, string(req.Platform))
	if err != nil {
		return nil, err
	}

	lookup, _ := enum.(metadataLookup)
	results := make([]ItemResult, len(items))

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	workers := o.workers
	if workers > len(items) {
		workers = len(items)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = o.processItem(ctx, inst, lookup, i, items[i], opts)
			}
		}()
	}
	wg.Wait()

	ok, failed := Summary(results)
	log.Printf("[pipeline] %s: %d succeeded, %d failed (instance %s)", req.Query, ok, failed, inst.Name)
	return results, nil
}

// ProcessText repurposes text directly, skipping acquisition.
func (o *Orchestrator) ProcessText(ctx context.Context, text string, opts Options) (*repurpose.Result, error) {
	opts = o.withDefaults(opts)
	return o.deps.Repurposer.Repurpose(ctx, repurpose.Request{
		SourceText:         text,
		Platforms:          opts.Platforms,
		CustomInstructions: opts.CustomInstructions,
	}, repurpose.UserProvided(o.now()))
}

func (o *Orchestrator) processItem(ctx context.Context, inst *storage.Instance, lookup metadataLookup, index int, item source.MediaItem, opts Options) ItemResult {
	m := newAcquiredMedia(item)
	if opts.OnStatus != nil {
		m.onChange = func(s Status) { opts.OnStatus(index, s) }
	}
	res := ItemResult{Index: index, Media: m}

	if err := o.acquire(ctx, inst, lookup, m); err != nil {
		m.advance(StatusFailed)
		log.Printf("[pipeline] %s failed: %v", item.ExternalID, err)
		res.Err = err
		o.saveRecord(inst, res)
		return res
	}

	out, err := o.deps.Repurposer.Repurpose(ctx, repurpose.Request{
		SourceText:         m.Transcript,
		Platforms:          opts.Platforms,
		CustomInstructions: opts.CustomInstructions,
	}, repurpose.Scraped(item.URL, string(item.Platform), o.now()))
	if err != nil {
		m.advance(StatusFailed)
		log.Printf("[pipeline] %s repurpose failed: %v", item.ExternalID, err)
		res.Err = err
	} else {
		res.Result = out
	}
	o.saveRecord(inst, res)
	return res
}

// acquire runs download, extraction and transcription, or takes the
// transcript from the cache.
func (o *Orchestrator) acquire(ctx context.Context, inst *storage.Instance, lookup metadataLookup, m *AcquiredMedia) error {
	item := m.Item
	platform := string(item.Platform)

	if text, ok, err := o.deps.Cache.GetTranscript(ctx, platform, item.ExternalID); err != nil {
		log.Printf("[pipeline] cache lookup for %s: %v", item.ExternalID, err)
	} else if ok && strings.TrimSpace(text) != "" {
		m.Transcript = text
		m.CacheHit = true
		return m.advance(StatusReady)
	}

	if err := m.advance(StatusDownloading); err != nil {
		return err
	}

	// Single items arrive without details; fetch them while the download runs.
	var looked chan source.MediaItem
	if lookup != nil && item.Title == "" {
		looked = make(chan source.MediaItem, 1)
		go func() {
			full, err := lookup.Lookup(ctx, item)
			if err != nil {
				log.Printf("[pipeline] metadata lookup for %s: %v", item.ExternalID, err)
				full = item
			}
			looked <- full
		}()
	}

	video, err := o.deps.Downloader.Download(ctx, item, inst.VideosPath())
	if looked != nil {
		m.Item = <-looked
	}
	if err != nil {
		return err
	}
	m.VideoPath = video

	if err := m.advance(StatusExtracting); err != nil {
		return err
	}
	audio, err := o.deps.Extractor.Extract(ctx, video, inst.AudioPath())
	if err != nil {
		return err
	}
	m.AudioPath = audio

	if err := m.advance(StatusTranscribing); err != nil {
		return err
	}
	tr, err := o.deps.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return fmt.Errorf("empty transcript for %s: %w", item.ExternalID, repurpose.ErrNoContent)
	}
	m.Transcript = text

	if err := o.deps.Cache.SetTranscript(ctx, platform, item.ExternalID, text); err != nil {
		log.Printf("[pipeline] cache store for %s: %v", item.ExternalID, err)
	}
	return m.advance(StatusReady)
}

type record struct {
	*AcquiredMedia
	Status  Status            `json:"status"`
	Result  *repurpose.Result `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	SavedAt string            `json:"savedAt"`
}

func (o *Orchestrator) saveRecord(inst *storage.Instance, res ItemResult) {
	rec := record{
		AcquiredMedia: res.Media,
		Status:        res.Media.Status(),
		Result:        res.Result,
		SavedAt:       o.now().UTC().Format(time.RFC3339),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	id := res.Media.Item.ExternalID
	if id == "" {
		id = fmt.Sprintf("item-%d", res.Index)
	}
	if err := inst.SaveMetadata(id, rec); err != nil {
		log.Printf("[pipeline] save metadata for %s: %v", id, err)
	}
	if res.Result == nil {
		return
	}
	doc := output.Document{Title: res.Media.Item.Title, Transcript: res.Media.Transcript, Result: res.Result}
	if err := output.Write(inst.ContentPath(id), doc); err != nil {
		log.Printf("[pipeline] save content for %s: %v", id, err)
	}
}

func (o *Orchestrator) limit(req source.Request, limit int) int {
	switch {
	case limit > 0:
		return limit
	case req.Limit > 0:
		return req.Limit
	case o.cfg.Pipeline.DefaultLimit > 0:
		return o.cfg.Pipeline.DefaultLimit
	default:
		return source.DefaultLimit
	}
}

func (o *Orchestrator) withDefaults(opts Options) Options {
	if len(opts.Platforms) > 0 {
		return opts
	}
	platforms, err := repurpose.ParsePlatforms(o.cfg.Pipeline.DefaultPlatforms)
	if err != nil {
		platforms = []repurpose.Platform{repurpose.LinkedIn, repurpose.Twitter, repurpose.TikTok}
	}
	opts.Platforms = platforms
	return opts
}

// Summary counts successes and failures across results.
func Summary(results []ItemResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}

// FirstError returns the first per-item error, if any.
func FirstError(results []ItemResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
