package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Dev-derah/simple-content-ai/internal/core/ai/transcriber"
	"github.com/Dev-derah/simple-content-ai/internal/core/cache"
	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

type fakeEnum struct {
	items  []source.MediaItem
	err    error
	looked atomic.Int32
}

func (e *fakeEnum) Name() string { return "fake" }

func (e *fakeEnum) Enumerate(ctx context.Context, req source.Request, limit int) ([]source.MediaItem, error) {
	if e.err != nil {
		return nil, e.err
	}
	if limit < len(e.items) {
		return e.items[:limit], nil
	}
	return e.items, nil
}

type lookupEnum struct{ *fakeEnum }

func (e lookupEnum) Lookup(ctx context.Context, item source.MediaItem) (source.MediaItem, error) {
	e.looked.Add(1)
	item.Title = "Looked up " + item.ExternalID
	item.Views = 42
	return item, nil
}

type fakeSources struct{ enum source.Enumerator }

func (s fakeSources) For(source.Request, *config.Config) (source.Enumerator, error) { return s.enum, nil }

type fakeDownloader struct {
	fail  map[string]bool
	calls atomic.Int32
}

func (d *fakeDownloader) Download(ctx context.Context, item source.MediaItem, destDir string) (string, error) {
	d.calls.Add(1)
	// Later items finish first so ordering depends on index writes.
	var i int
	if _, err := fmt.Sscanf(item.ExternalID, "v%d", &i); err == nil && i < 10 {
		time.Sleep(time.Duration(10-i) * time.Millisecond)
	}
	if d.fail[item.ExternalID] {
		return "", fmt.Errorf("download %s: boom", item.ExternalID)
	}
	p := filepath.Join(destDir, item.ExternalID+".mp4")
	return p, os.WriteFile(p, []byte("video"), 0644)
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, videoPath, destDir string) (string, error) {
	return filepath.Join(destDir, strings.TrimSuffix(filepath.Base(videoPath), ".mp4")+".wav"), nil
}

type fakeTranscriber struct {
	texts map[string]string
}

func (fakeTranscriber) Name() string { return "fake" }

func (t fakeTranscriber) Transcribe(ctx context.Context, path string) (*transcriber.Result, error) {
	id := strings.TrimSuffix(filepath.Base(path), ".wav")
	if text, ok := t.texts[id]; ok {
		return &transcriber.Result{Text: text}, nil
	}
	return &transcriber.Result{Text: "transcript of " + id}, nil
}

type fakeRepurposer struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (r *fakeRepurposer) Repurpose(ctx context.Context, req repurpose.Request, src repurpose.SourceInfo) (*repurpose.Result, error) {
	r.mu.Lock()
	r.sources = append(r.sources, req.SourceText)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	content := map[repurpose.Platform]repurpose.Content{}
	for _, p := range req.Platforms {
		content[p] = repurpose.Content{Kind: repurpose.KindText, Text: req.SourceText}
	}
	return &repurpose.Result{Metadata: repurpose.Metadata{Source: src}, Content: content}, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DownloadDir = t.TempDir()
	cfg.Pipeline.MaxConcurrent = 3
	return cfg
}

func items(n int) []source.MediaItem {
	out := make([]source.MediaItem, n)
	for i := range out {
		id := fmt.Sprintf("v%d", i)
		out[i] = source.MediaItem{URL: "https://example.com/" + id, ExternalID: id, Platform: source.PlatformTikTok, Title: id}
	}
	return out
}

func newTestOrchestrator(t *testing.T, enum source.Enumerator, dl *fakeDownloader, rp *fakeRepurposer, tr fakeTranscriber) *Orchestrator {
	return New(testConfig(t), Deps{
		Sources:     fakeSources{enum},
		Downloader:  dl,
		Extractor:   fakeExtractor{},
		Transcriber: tr,
		Repurposer:  rp,
	})
}

func TestProcessSourcePartialFailures(t *testing.T) {
	const n = 7
	dl := &fakeDownloader{fail: map[string]bool{"v1": true, "v4": true, "v5": true}}
	o := newTestOrchestrator(t, &fakeEnum{items: items(n)}, dl, &fakeRepurposer{}, fakeTranscriber{})

	req := source.Request{Platform: source.PlatformTikTok, ContentType: source.ContentProfile, Query: "https://www.tiktok.com/@x"}
	results, err := o.ProcessSource(context.Background(), req, n, Options{Platforms: []repurpose.Platform{repurpose.Twitter}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != n {
		t.Fatalf("len(results) = %d; want %d", len(results), n)
	}
	ok, failed := Summary(results)
	if ok != n-3 || failed != 3 {
		t.Errorf("Summary = %d ok, %d failed; want %d, 3", ok, failed, n-3)
	}
	for i, r := range results {
		id := fmt.Sprintf("v%d", i)
		if r.Index != i || r.Media.Item.ExternalID != id {
			t.Errorf("results[%d] = %s (index %d); want %s", i, r.Media.Item.ExternalID, r.Index, id)
		}
		if dl.fail[id] {
			if r.Err == nil || r.Result != nil || r.Media.Status() != StatusFailed {
				t.Errorf("%s: err=%v result=%v status=%s; want failure", id, r.Err, r.Result, r.Media.Status())
			}
			continue
		}
		if r.Err != nil || r.Result == nil || r.Media.Status() != StatusReady {
			t.Errorf("%s: err=%v status=%s; want success", id, r.Err, r.Media.Status())
			continue
		}
		if got := r.Result.Content[repurpose.Twitter].Text; got != "transcript of "+id {
			t.Errorf("%s: content = %q", id, got)
		}
		if r.Result.Metadata.Source.OriginalURL != "https://example.com/"+id {
			t.Errorf("%s: source = %+v", id, r.Result.Metadata.Source)
		}
	}
}

func TestProcessSourceSavesMetadata(t *testing.T) {
	dl := &fakeDownloader{fail: map[string]bool{"v1": true}}
	o := newTestOrchestrator(t, &fakeEnum{items: items(2)}, dl, &fakeRepurposer{}, fakeTranscriber{})

	if _, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformTikTok}, 2, Options{}); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(o.root, "tiktok_*", "metadata", "*.json"))
	if len(matches) != 2 {
		t.Fatalf("metadata files = %v; want 2", matches)
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(matches[0]), "v1.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status": "failed"`) || !strings.Contains(string(data), "boom") {
		t.Errorf("v1.json = %s; want failed status and error", data)
	}

	docs, _ := filepath.Glob(filepath.Join(o.root, "tiktok_*", "content", "*.md"))
	if len(docs) != 1 || filepath.Base(docs[0]) != "v0.md" {
		t.Fatalf("content files = %v; want only v0.md", docs)
	}
	md, err := os.ReadFile(docs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "# v0") || !strings.Contains(string(md), "transcript of v0") {
		t.Errorf("v0.md = %s", md)
	}
}

func TestProcessSourceEnumerationError(t *testing.T) {
	want := &source.EnumerationError{Platform: source.PlatformTikTok, Err: source.ErrNoResults}
	o := newTestOrchestrator(t, &fakeEnum{err: want}, &fakeDownloader{}, &fakeRepurposer{}, fakeTranscriber{})

	_, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformTikTok}, 5, Options{})
	if !errors.Is(err, source.ErrNoResults) {
		t.Errorf("err = %v; want ErrNoResults", err)
	}
}

func TestProcessSourceEmptyTranscript(t *testing.T) {
	rp := &fakeRepurposer{}
	o := newTestOrchestrator(t, &fakeEnum{items: items(2)}, &fakeDownloader{}, rp, fakeTranscriber{texts: map[string]string{"v0": "   "}})

	results, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformTikTok}, 2, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Err, repurpose.ErrNoContent) {
		t.Errorf("results[0].Err = %v; want ErrNoContent", results[0].Err)
	}
	if results[1].Err != nil {
		t.Errorf("results[1].Err = %v", results[1].Err)
	}
	if len(rp.sources) != 1 {
		t.Errorf("repurposer called %d times; want 1", len(rp.sources))
	}
}

func TestProcessSourceRepurposeFailure(t *testing.T) {
	rp := &fakeRepurposer{err: &repurpose.GenerationError{Attempts: 3, Err: errors.New("quota")}}
	o := newTestOrchestrator(t, &fakeEnum{items: items(1)}, &fakeDownloader{}, rp, fakeTranscriber{})

	results, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformTikTok}, 1, Options{})
	if err != nil {
		t.Fatal(err)
	}
	var genErr *repurpose.GenerationError
	if !errors.As(results[0].Err, &genErr) {
		t.Errorf("err = %v; want GenerationError", results[0].Err)
	}
	if results[0].Media.Status() != StatusFailed {
		t.Errorf("status = %s; want failed", results[0].Media.Status())
	}
}

func TestProcessSourceLooksUpSingleItems(t *testing.T) {
	base := &fakeEnum{items: []source.MediaItem{{URL: "https://youtu.be/abc", ExternalID: "abc", Platform: source.PlatformYouTube}}}
	o := newTestOrchestrator(t, lookupEnum{base}, &fakeDownloader{}, &fakeRepurposer{}, fakeTranscriber{})

	results, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformYouTube, ContentType: source.ContentVideo}, 1, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if base.looked.Load() != 1 {
		t.Errorf("Lookup called %d times; want 1", base.looked.Load())
	}
	if got := results[0].Media.Item; got.Title != "Looked up abc" || got.Views != 42 {
		t.Errorf("item = %+v; want looked-up details", got)
	}
}

func TestProcessSourceUsesTranscriptCache(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	defer store.Close()

	dl := &fakeDownloader{}
	rp := &fakeRepurposer{}
	cfg := testConfig(t)
	o := New(cfg, Deps{
		Sources:     fakeSources{&fakeEnum{items: items(2)}},
		Downloader:  dl,
		Extractor:   fakeExtractor{},
		Transcriber: fakeTranscriber{},
		Repurposer:  rp,
		Cache:       store,
	})
	if err := store.SetTranscript(context.Background(), "tiktok", "v0", "cached words"); err != nil {
		t.Fatal(err)
	}

	results, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformTikTok}, 2, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Media.CacheHit || results[0].Media.Transcript != "cached words" {
		t.Errorf("results[0].Media = %+v; want cache hit", results[0].Media)
	}
	if dl.calls.Load() != 1 {
		t.Errorf("downloads = %d; want 1", dl.calls.Load())
	}
	if text, ok, _ := store.GetTranscript(context.Background(), "tiktok", "v1"); !ok || text != "transcript of v1" {
		t.Errorf("v1 not cached after processing: %q %v", text, ok)
	}
}

func TestProcessText(t *testing.T) {
	rp := &fakeRepurposer{}
	o := New(testConfig(t), Deps{Repurposer: rp})

	res, err := o.ProcessText(context.Background(), "plain text", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Metadata.Source.Type != "user-provided" {
		t.Errorf("source = %+v; want user-provided", res.Metadata.Source)
	}
	// Default platforms come from config.
	if len(res.Content) != 3 {
		t.Errorf("content = %v; want 3 default platforms", res.Content)
	}
}

func TestProcessInvalidInput(t *testing.T) {
	o := New(testConfig(t), Deps{Repurposer: &fakeRepurposer{}})
	if _, err := o.Process(context.Background(), "!!", 1, Options{}); err == nil {
		t.Error("Process(!!) succeeded; want validation error")
	}
}

func TestAdvance(t *testing.T) {
	m := newAcquiredMedia(source.MediaItem{ExternalID: "x"})
	steps := []Status{StatusDownloading, StatusExtracting, StatusTranscribing, StatusReady}
	for _, s := range steps {
		if err := m.advance(s); err != nil {
			t.Fatalf("advance(%s): %v", s, err)
		}
	}
	if err := m.advance(StatusDownloading); err == nil {
		t.Error("advance backwards succeeded")
	}
	if err := m.advance(StatusFailed); err != nil {
		t.Errorf("advance(failed): %v", err)
	}
	if err := m.advance(StatusReady); err == nil {
		t.Error("advance out of failed succeeded")
	}
	if m.Status() != StatusFailed {
		t.Errorf("status = %s; want failed", m.Status())
	}
}

func TestProcessSourceReportsProgress(t *testing.T) {
	dl := &fakeDownloader{fail: map[string]bool{"v1": true}}
	o := newTestOrchestrator(t, &fakeEnum{items: items(2)}, dl, &fakeRepurposer{}, fakeTranscriber{})

	var (
		mu         sync.Mutex
		enumerated int
		seen       = map[int][]Status{}
	)
	opts := Options{
		OnEnumerated: func(items []source.MediaItem) { enumerated = len(items) },
		OnStatus: func(index int, s Status) {
			mu.Lock()
			seen[index] = append(seen[index], s)
			mu.Unlock()
		},
	}
	if _, err := o.ProcessSource(context.Background(), source.Request{Platform: source.PlatformTikTok}, 2, opts); err != nil {
		t.Fatal(err)
	}

	if enumerated != 2 {
		t.Errorf("OnEnumerated got %d items; want 2", enumerated)
	}
	want0 := []Status{StatusDownloading, StatusExtracting, StatusTranscribing, StatusReady}
	if fmt.Sprint(seen[0]) != fmt.Sprint(want0) {
		t.Errorf("item 0 statuses = %v; want %v", seen[0], want0)
	}
	want1 := []Status{StatusDownloading, StatusFailed}
	if fmt.Sprint(seen[1]) != fmt.Sprint(want1) {
		t.Errorf("item 1 statuses = %v; want %v", seen[1], want1)
	}
}
