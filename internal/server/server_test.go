package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

type fakeProcessor struct {
	sourceErr error
	gotReq    source.Request
	gotOpts   pipeline.Options
	block     chan struct{}
}

func (p *fakeProcessor) ProcessSource(ctx context.Context, req source.Request, limit int, opts pipeline.Options) ([]pipeline.ItemResult, error) {
	p.gotReq, p.gotOpts = req, opts
	if p.sourceErr != nil {
		return nil, p.sourceErr
	}
	ok := pipeline.ItemResult{Index: 0, Media: &pipeline.AcquiredMedia{Item: source.MediaItem{URL: req.Query, ExternalID: "1", Platform: req.Platform}}, Result: textResult("from video")}
	bad := pipeline.ItemResult{Index: 1, Media: &pipeline.AcquiredMedia{Item: source.MediaItem{URL: req.Query + "/2", ExternalID: "2", Platform: req.Platform}}, Err: errors.New("download failed")}
	return []pipeline.ItemResult{ok, bad}, nil
}

func (p *fakeProcessor) ProcessText(ctx context.Context, text string, opts pipeline.Options) (*repurpose.Result, error) {
	p.gotOpts = opts
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return textResult(text), nil
}

func textResult(text string) *repurpose.Result {
	return &repurpose.Result{
		Metadata: repurpose.Metadata{Source: repurpose.SourceInfo{Type: "user-provided"}},
		Content: map[repurpose.Platform]repurpose.Content{
			repurpose.Twitter: {Kind: repurpose.KindThread, Text: text + `\none`},
			repurpose.TikTok:  {Kind: repurpose.KindScript, Caption: "cap", Script: "scr"},
		},
	}
}

func newTestServer(t *testing.T, p Processor, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DownloadDir = t.TempDir()
	cfg.Server.RequestsPerWindow = -1
	if mutate != nil {
		mutate(cfg)
	}
	s := NewServer(cfg, p)
	s.jobQueue.Start()
	t.Cleanup(s.jobQueue.Stop)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, func(c *config.Config) { c.Server.APIKey = "secret" })
	w, body := do(t, s, http.MethodGet, "/api/health", nil, nil)
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", w.Code, body)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, func(c *config.Config) { c.Server.APIKey = "secret" })
	req := ContentRequest{Text: "hello", Platform: "generic"}

	if w, _ := do(t, s, http.MethodPost, "/api/v1/content/process", req, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d; want 401", w.Code)
	}
	if w, _ := do(t, s, http.MethodPost, "/api/v1/content/process", req, map[string]string{"X-API-Key": "secret"}); w.Code != http.StatusOK {
		t.Errorf("with key: status = %d; want 200", w.Code)
	}
}

func TestProcessValidation(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, nil)
	tests := []struct {
		name string
		req  ContentRequest
		want string
	}{
		{"no source", ContentRequest{Platform: "tiktok"}, "Must provide either url, text, or keyword"},
		{"no platform", ContentRequest{Text: "hello"}, "Platform must be specified"},
		{"bad platform", ContentRequest{Text: "hello", Platform: "x", Options: ContentOptions{Platforms: []string{"myspace"}}}, ""},
		{"bad url", ContentRequest{URL: "!!", Platform: "tiktok"}, ""},
		{"unknown content type", ContentRequest{URL: "https://www.tiktok.com/@u/video/1", Platform: "tiktok", ContentType: "podcast"}, `unsupported content type: "podcast"`},
		{"video as profile", ContentRequest{URL: "https://www.tiktok.com/@u/video/1", Platform: "tiktok", ContentType: "profile"}, "unsupported content type: video input cannot be processed as profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, s, http.MethodPost, "/api/v1/content/process", tt.req, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400 (%v)", w.Code, body)
			}
			if tt.want != "" && body["error"] != tt.want {
				t.Errorf("error = %v; want %q", body["error"], tt.want)
			}
		})
	}
}

func TestContentAllowsMissingPlatform(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, nil)
	if w, body := do(t, s, http.MethodPost, "/api/v1/content", ContentRequest{Text: "hello"}, nil); w.Code != http.StatusOK {
		t.Errorf("status = %d; want 200 (%v)", w.Code, body)
	}
}

func TestProcessText(t *testing.T) {
	p := &fakeProcessor{}
	s := newTestServer(t, p, nil)
	w, body := do(t, s, http.MethodPost, "/api/v1/content/process", ContentRequest{
		Text:     "hello",
		Platform: "generic",
		Options:  ContentOptions{Platforms: []string{"twitter", "TikTok"}, CustomPrompt: "casual"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %v", w.Code, body)
	}
	if body["success"] != true || body["customPromptUsed"] != true {
		t.Errorf("body = %v", body)
	}
	if got := fmt.Sprint(body["processedPlatforms"]); got != "[twitter TikTok]" {
		t.Errorf("processedPlatforms = %s", got)
	}
	if len(p.gotOpts.Platforms) != 2 || p.gotOpts.CustomInstructions != "casual" {
		t.Errorf("options = %+v", p.gotOpts)
	}

	content := body["data"].(map[string]any)["content"].(map[string]any)
	if content["twitter"] != "hello\none" {
		t.Errorf("twitter = %q; want literal \\n cleaned", content["twitter"])
	}
	if script := content["tiktok"].(map[string]any); script["caption"] != "cap" || script["script"] != "scr" {
		t.Errorf("tiktok = %v", script)
	}
}

func TestProcessSourceItems(t *testing.T) {
	p := &fakeProcessor{}
	s := newTestServer(t, p, nil)
	w, body := do(t, s, http.MethodPost, "/api/v1/content/process", ContentRequest{
		URL:      "https://www.tiktok.com/@someone",
		Platform: "tiktok",
		Options:  ContentOptions{Limit: 2},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %v", w.Code, body)
	}
	if p.gotReq.Platform != source.PlatformTikTok || p.gotReq.ContentType != source.ContentProfile {
		t.Errorf("request = %+v", p.gotReq)
	}
	if body["processedPlatforms"] != "all" {
		t.Errorf("processedPlatforms = %v; want all", body["processedPlatforms"])
	}
	items := body["data"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	first, second := items[0].(map[string]any), items[1].(map[string]any)
	if first["repurposedContent"] == nil || first["error"] != nil {
		t.Errorf("first = %v", first)
	}
	if second["error"] != "download failed" || second["repurposedContent"] != nil {
		t.Errorf("second = %v", second)
	}
}

func TestProcessSourceFailure(t *testing.T) {
	p := &fakeProcessor{sourceErr: fmt.Errorf("enumerate: %w", &source.EnumerationError{
		Platform: source.PlatformTikTok,
		Err:      errors.New("browser crashed\nstack trace"),
	})}
	s := newTestServer(t, p, nil)
	w, body := do(t, s, http.MethodPost, "/api/v1/content/process", ContentRequest{URL: "https://www.tiktok.com/@someone", Platform: "tiktok"}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	if body["details"] != "browser crashed" {
		t.Errorf("details = %q; want first line of the root cause", body["details"])
	}
	if body["error"] == nil {
		t.Error("missing error")
	}
}

func TestProcessSourceNoResults(t *testing.T) {
	p := &fakeProcessor{sourceErr: &source.EnumerationError{Platform: source.PlatformTikTok, Err: source.ErrNoResults}}
	s := newTestServer(t, p, nil)
	w, body := do(t, s, http.MethodPost, "/api/v1/content/process", ContentRequest{URL: "https://www.tiktok.com/@someone", Platform: "tiktok"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %v", w.Code, body)
	}
	if items, ok := body["data"].([]any); !ok || len(items) != 0 {
		t.Errorf("data = %v; want empty list", body["data"])
	}
}

func TestJobs(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, nil)

	w, body := do(t, s, http.MethodPost, "/api/v1/jobs", ContentRequest{Text: "queued text"}, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d; body %v", w.Code, body)
	}
	id := body["id"].(string)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, job := do(t, s, http.MethodGet, "/api/v1/jobs/"+id, nil, nil)
		if job["status"] == string(JobStatusCompleted) {
			if job["result"] == nil {
				t.Errorf("completed job has no result: %v", job)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete: %v", job)
		}
		time.Sleep(10 * time.Millisecond)
	}

	_, list := do(t, s, http.MethodGet, "/api/v1/jobs", nil, nil)
	if jobs := list["jobs"].([]any); len(jobs) != 1 {
		t.Errorf("jobs = %v; want 1", jobs)
	}
	if w, _ := do(t, s, http.MethodDelete, "/api/v1/jobs/"+id, nil, nil); w.Code != http.StatusOK {
		t.Errorf("delete finished job: status = %d", w.Code)
	}
	if w, _ := do(t, s, http.MethodGet, "/api/v1/jobs/"+id, nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("get removed job: status = %d; want 404", w.Code)
	}
}

func TestCancelJob(t *testing.T) {
	p := &fakeProcessor{block: make(chan struct{})}
	s := newTestServer(t, p, nil)

	_, body := do(t, s, http.MethodPost, "/api/v1/jobs", ContentRequest{Text: "slow"}, nil)
	id := body["id"].(string)

	w, body := do(t, s, http.MethodDelete, "/api/v1/jobs/"+id, nil, nil)
	if w.Code != http.StatusOK || body["status"] != string(JobStatusCancelled) {
		t.Fatalf("cancel = %d %v", w.Code, body)
	}
	if job := s.jobQueue.GetJob(id); job == nil || job.Status != JobStatusCancelled {
		t.Errorf("job = %+v; want cancelled", job)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, func(c *config.Config) { c.Server.RequestsPerWindow = 2 })
	req := ContentRequest{Text: "hello"}
	for i := 0; i < 2; i++ {
		if w, _ := do(t, s, http.MethodPost, "/api/v1/content", req, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	if w, _ := do(t, s, http.MethodPost, "/api/v1/content", req, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d; want 429", w.Code)
	}
	if w, _ := do(t, s, http.MethodGet, "/api/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health is rate limited: %d", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{}, nil)
	w, body := do(t, s, http.MethodGet, "/nope", nil, nil)
	if w.Code != http.StatusNotFound || body["error"] != "Route not found" {
		t.Errorf("got %d %v", w.Code, body)
	}
}

func TestCleanFormatting(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`line one\nline two`, "line one\nline two"},
		{"a\n\n\n\nb", "a\n\nb"},
		{`say \"hi\"`, `say "hi"`},
		{"  lots   of\t spaces  ", "lots of spaces"},
		{"keep\n\nparagraphs", "keep\n\nparagraphs"},
	}
	for _, tt := range tests {
		if got := cleanFormatting(tt.in); got != tt.want {
			t.Errorf("cleanFormatting(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
