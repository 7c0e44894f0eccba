package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

// sizedFetcher writes a file of sizes[attempt] bytes on each call.
type sizedFetcher struct {
	sizes []int
	calls int
	opts  []FetchOptions
	err   error
}

func (f *sizedFetcher) Fetch(ctx context.Context, url, outPath string, opts FetchOptions) error {
	f.opts = append(f.opts, opts)
	size := f.sizes[len(f.sizes)-1]
	if f.calls < len(f.sizes) {
		size = f.sizes[f.calls]
	}
	f.calls++
	if f.err != nil {
		_ = os.WriteFile(outPath+".part", []byte("partial"), 0644)
		return f.err
	}
	return os.WriteFile(outPath, make([]byte, size), 0644)
}

func testDownloadConfig() config.DownloadConfig {
	return config.DownloadConfig{MinBytes: 1024, Attempts: 3}
}

func TestDownloadRetriesUndersized(t *testing.T) {
	dir := t.TempDir()
	f := &sizedFetcher{sizes: []int{10, 500, 4096}}
	d := NewDownloader(f, testDownloadConfig())

	item := source.MediaItem{URL: "https://www.tiktok.com/@u/video/1", ExternalID: "1", Platform: source.PlatformTikTok}
	path, err := d.Download(context.Background(), item, dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if f.calls != 3 {
		t.Errorf("fetch called %d times; want 3", f.calls)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() < 1024 {
		t.Errorf("returned file has %d bytes; below minimum", fi.Size())
	}
}

func TestDownloadExhaustsAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	f := &sizedFetcher{sizes: []int{10}}
	d := NewDownloader(f, testDownloadConfig())

	item := source.MediaItem{URL: "https://youtu.be/abcdefghijk", ExternalID: "abcdefghijk", Platform: source.PlatformYouTube}
	path, err := d.Download(context.Background(), item, dir)

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("err = %v; want *DownloadError", err)
	}
	if dlErr.Attempts != 3 {
		t.Errorf("Attempts = %d; want 3", dlErr.Attempts)
	}
	if !errors.Is(err, ErrUndersized) {
		t.Errorf("err = %v; want ErrUndersized in chain", err)
	}
	if path != "" {
		t.Errorf("path = %q; want empty", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "abcdefghijk.mp4")); !os.IsNotExist(err) {
		t.Error("undersized file was not deleted")
	}
}

func TestDownloadFetchErrorRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	f := &sizedFetcher{sizes: []int{0}, err: errors.New("HTTP Error 403")}
	cfg := testDownloadConfig()
	cfg.Attempts = 2
	d := NewDownloader(f, cfg)

	_, err := d.Download(context.Background(), source.MediaItem{URL: "u", ExternalID: "x"}, dir)
	if err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 2 {
		t.Errorf("fetch called %d times; want 2", f.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.mp4.part")); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestDownloadOptionsPerPlatform(t *testing.T) {
	f := &sizedFetcher{sizes: []int{4096}}
	cfg := testDownloadConfig()
	cfg.Format = "bestvideo+bestaudio/best"
	cfg.Proxy = "http://proxy:8080"
	d := NewDownloader(f, cfg)

	if _, err := d.Download(context.Background(), source.MediaItem{URL: "u", ExternalID: "yt", Platform: source.PlatformYouTube}, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Download(context.Background(), source.MediaItem{URL: "u", ExternalID: "tt", Platform: source.PlatformTikTok}, t.TempDir()); err != nil {
		t.Fatal(err)
	}

	yt, tt := f.opts[0], f.opts[1]
	if yt.Referer != "https://www.youtube.com/" || yt.Format != "bestvideo+bestaudio/best" {
		t.Errorf("youtube options = %+v", yt)
	}
	if tt.Referer != "https://www.tiktok.com/" || tt.Format != "best" {
		t.Errorf("tiktok options = %+v", tt)
	}
	if yt.Proxy != "http://proxy:8080" || tt.Proxy != "http://proxy:8080" {
		t.Errorf("proxy not applied: %q %q", yt.Proxy, tt.Proxy)
	}
}

func TestProxyPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "proxy list\n# comment\n\nhttp://a:1\n  http://b:2  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProxyFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", p.Len())
	}
	want := []string{"http://a:1", "http://b:2", "http://a:1"}
	for i, w := range want {
		if got := p.Next(); got != w {
			t.Errorf("Next() #%d = %q; want %q", i, got, w)
		}
	}

	var nilPool *ProxyPool
	if nilPool.Next() != "" {
		t.Error("nil pool should yield empty proxy")
	}
}

func TestLoadProxyFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	if err := os.WriteFile(path, []byte("# nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProxyFile(path); err == nil {
		t.Error("expected error for empty proxy list")
	}
}

// writeTestWAV writes n samples of silence.
func writeTestWAV(t *testing.T, path string, sampleRate, channels, n int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:           make([]int, n*channels),
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

// fakeFFmpeg writes whatever output the test asks for to the last argument.
type fakeFFmpeg struct {
	t        *testing.T
	rate     int
	channels int
	empty    bool
	none     bool
	err      error
	args     [][]string
}

func (f *fakeFFmpeg) Name() string { return "fake-ffmpeg" }

func (f *fakeFFmpeg) Run(ctx context.Context, args []string, mounts ...string) error {
	f.args = append(f.args, args)
	if f.err != nil {
		return f.err
	}
	out := args[len(args)-1]
	switch {
	case f.none:
		return nil
	case f.empty:
		return os.WriteFile(out, nil, 0644)
	default:
		writeTestWAV(f.t, out, f.rate, f.channels, f.rate/10)
		return nil
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "123.mp4")
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	ff := &fakeFFmpeg{t: t, rate: 16000, channels: 1}
	a := NewAudioExtractor(ff, 16000, time.Minute)

	out, err := a.Extract(context.Background(), video, filepath.Join(dir, "audio"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if filepath.Base(out) != "123.wav" {
		t.Errorf("output = %s; want 123.wav", out)
	}

	args := ff.args[0]
	want := []string{"-map", "0:a:0", "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le"}
	for i, w := range want {
		if args[3+i] != w {
			t.Errorf("arg %d = %q; want %q (args %v)", 3+i, args[3+i], w, args)
		}
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name string
		ff   *fakeFFmpeg
	}{
		{"ffmpeg error", &fakeFFmpeg{err: errors.New("no audio stream")}},
		{"missing output", &fakeFFmpeg{none: true}},
		{"empty output", &fakeFFmpeg{empty: true}},
		{"stereo output", &fakeFFmpeg{rate: 16000, channels: 2}},
		{"wrong rate", &fakeFFmpeg{rate: 44100, channels: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ff.t = t
			dir := t.TempDir()
			video := filepath.Join(dir, "v.mp4")
			if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
				t.Fatal(err)
			}

			a := NewAudioExtractor(tt.ff, 16000, 0)
			_, err := a.Extract(context.Background(), video, dir)

			var exErr *ExtractionError
			if !errors.As(err, &exErr) {
				t.Fatalf("err = %v; want *ExtractionError", err)
			}
			if len(tt.ff.args) != 1 {
				t.Errorf("ffmpeg ran %d times; extraction must not retry", len(tt.ff.args))
			}
		})
	}
}

func TestChunkBounds(t *testing.T) {
	tests := []struct {
		name    string
		total   time.Duration
		size    time.Duration
		overlap time.Duration
		want    int
		lastEnd time.Duration
	}{
		{"shorter than chunk", 90 * time.Second, 10 * time.Minute, 5 * time.Second, 1, 90 * time.Second},
		{"exact chunk", 10 * time.Minute, 10 * time.Minute, 5 * time.Second, 1, 10 * time.Minute},
		{"two chunks", 15 * time.Minute, 10 * time.Minute, 5 * time.Second, 2, 15 * time.Minute},
		{"zero length", 0, 10 * time.Minute, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkBounds(tt.total, tt.size, tt.overlap)
			if len(got) != tt.want {
				t.Fatalf("chunkBounds() gave %d chunks; want %d", len(got), tt.want)
			}
			if tt.want > 0 && got[len(got)-1][1] != tt.lastEnd {
				t.Errorf("last end = %v; want %v", got[len(got)-1][1], tt.lastEnd)
			}
		})
	}
}

func TestChunkerSplit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long.wav")
	writeTestWAV(t, path, 16000, 1, 16000*3)

	ff := &fakeFFmpeg{t: t, rate: 16000, channels: 1}
	c := NewChunker(ff)
	c.chunkDur = 2 * time.Second
	c.overlap = 0
	c.maxFileSize = 1024

	need, err := c.NeedsSplit(path)
	if err != nil || !need {
		t.Fatalf("NeedsSplit = %v, %v; want true", need, err)
	}

	chunks, err := c.Split(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks; want 2", len(chunks))
	}
	if filepath.Base(chunks[1].Path) != "chunk_002.wav" {
		t.Errorf("chunk path = %s", chunks[1].Path)
	}
}
