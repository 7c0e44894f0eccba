package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([\w-]{6,})`),
	regexp.MustCompile(`youtu\.be/([\w-]{6,})`),
	regexp.MustCompile(`/shorts/([\w-]{6,})`),
	regexp.MustCompile(`/embed/([\w-]{6,})`),
	regexp.MustCompile(`/v/([\w-]{6,})`),
}

// YouTubeVideoID extracts the video id from any common YouTube URL form.
func YouTubeVideoID(rawURL string) string {
	for _, re := range youtubeIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// ytdlpInfo is the subset of yt-dlp's JSON output we read.
type ytdlpInfo struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	ViewCount  int64       `json:"view_count"`
	UploadDate string      `json:"upload_date"`
	Entries    []ytdlpInfo `json:"entries"`
}

// YouTubeEnumerator resolves channels and searches through yt-dlp's metadata
// extraction, without a browser.
type YouTubeEnumerator struct {
	runner  Runner
	bin     string
	cookies string
	timeout time.Duration
}

// NewYouTubeEnumerator creates a YouTube enumerator. cookies may be empty.
func NewYouTubeEnumerator(runner Runner, bin, cookies string, timeout time.Duration) *YouTubeEnumerator {
	if runner == nil {
		runner = ExecRunner{}
	}
	if bin == "" {
		bin = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &YouTubeEnumerator{runner: runner, bin: bin, cookies: cookies, timeout: timeout}
}

func (e *YouTubeEnumerator) Name() string {
	return "youtube"
}

func (e *YouTubeEnumerator) Enumerate(ctx context.Context, req Request, limit int) ([]MediaItem, error) {
	if req.ContentType.IsSingleItem() {
		id := YouTubeVideoID(req.Query)
		if id == "" {
			return nil, &EnumerationError{Platform: PlatformYouTube, Query: req.Query, Err: fmt.Errorf("no video id in URL")}
		}
		return []MediaItem{{URL: req.Query, ExternalID: id, Platform: PlatformYouTube}}, nil
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	var target string
	switch req.ContentType {
	case ContentChannel:
		target = strings.TrimSuffix(req.Query, "/videos") + "/videos"
	case ContentKeyword:
		target = fmt.Sprintf("ytsearch%d:%s", limit, req.Query)
	default:
		target = req.Query
	}

	args := []string{"--dump-single-json", "--flat-playlist", "--no-warnings", "--playlist-end", fmt.Sprint(limit)}
	if e.cookies != "" {
		args = append(args, "--cookies", e.cookies)
	}
	args = append(args, target)

	info, err := e.dump(ctx, args)
	if err != nil {
		return nil, &EnumerationError{Platform: PlatformYouTube, Query: req.Query, Err: err}
	}

	items := make([]MediaItem, 0, len(info.Entries))
	for _, entry := range info.Entries {
		u := entry.URL
		if !strings.HasPrefix(u, "http") {
			u = "https://www.youtube.com/watch?v=" + entry.ID
		}
		items = append(items, MediaItem{
			URL:        u,
			ExternalID: entry.ID,
			Platform:   PlatformYouTube,
			Title:      entry.Title,
			Views:      entry.ViewCount,
			UploadDate: entry.UploadDate,
		})
	}
	items = Dedup(items, limit)
	if len(items) == 0 {
		return nil, &EnumerationError{Platform: PlatformYouTube, Query: req.Query, Err: ErrNoResults}
	}

	log.Printf("[yt-dlp] found %d youtube videos for %s", len(items), req.Query)
	return items, nil
}

// Lookup fills in title, views and upload date for a single video.
func (e *YouTubeEnumerator) Lookup(ctx context.Context, item MediaItem) (MediaItem, error) {
	args := []string{"--dump-single-json", "--skip-download", "--no-warnings"}
	if e.cookies != "" {
		args = append(args, "--cookies", e.cookies)
	}
	args = append(args, item.URL)

	info, err := e.dump(ctx, args)
	if err != nil {
		return item, err
	}
	if item.Title == "" {
		item.Title = info.Title
	}
	item.Views = info.ViewCount
	item.UploadDate = info.UploadDate
	return item, nil
}

func (e *YouTubeEnumerator) dump(ctx context.Context, args []string) (*ytdlpInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.runner.Output(ctx, e.bin, args...)
	if err != nil {
		return nil, err
	}
	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	return &info, nil
}
