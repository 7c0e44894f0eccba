// Package media downloads source videos and turns them into transcription-ready
// audio. External tools (yt-dlp, ffmpeg) sit behind small interfaces so the
// retry and validation rules can be tested without them.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/retry"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
	"github.com/Dev-derah/simple-content-ai/internal/core/storage"
)

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrUndersized means the downloaded file was smaller than the configured minimum.
var ErrUndersized = errors.New("downloaded file too small, likely incomplete")

// DownloadError is returned when every download attempt failed.
type DownloadError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// FetchOptions are the per-platform parameters passed to the fetcher.
type FetchOptions struct {
	Format    string
	Referer   string
	UserAgent string
	Cookies   string
	Proxy     string
	// ExtractorArgs is passed through to yt-dlp's --extractor-args
	ExtractorArgs string
}

// Fetcher writes the media at url to outPath.
type Fetcher interface {
	Fetch(ctx context.Context, url, outPath string, opts FetchOptions) error
}

// YtDlpFetcher shells out to yt-dlp.
type YtDlpFetcher struct {
	Bin string
}

func (f *YtDlpFetcher) Fetch(ctx context.Context, url, outPath string, opts FetchOptions) error {
	bin := f.Bin
	if bin == "" {
		bin = "yt-dlp"
	}

	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--no-check-certificates",
		"--socket-timeout", "30",
		"--retries", "3",
		"--fragment-retries", "5",
		"--merge-output-format", "mp4",
		"-o", outPath,
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.Referer != "" {
		args = append(args, "--referer", opts.Referer)
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	if opts.Cookies != "" {
		args = append(args, "--cookies", opts.Cookies)
	}
	if opts.Proxy != "" {
		args = append(args, "--proxy", opts.Proxy)
	}
	if opts.ExtractorArgs != "" {
		args = append(args, "--extractor-args", opts.ExtractorArgs)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// Downloader fetches one media item to disk with bounded retries and a
// minimum size check. It never returns a path to a file below the minimum.
type Downloader struct {
	fetcher  Fetcher
	format   string
	minBytes int64
	attempts int
	delay    time.Duration
	timeout  time.Duration
	cookies  string
	proxies  *ProxyPool
}

// NewDownloader creates a downloader from the download section of cfg.
func NewDownloader(fetcher Fetcher, cfg config.DownloadConfig) *Downloader {
	if fetcher == nil {
		fetcher = &YtDlpFetcher{Bin: cfg.YtDlpBin}
	}
	d := &Downloader{
		fetcher:  fetcher,
		format:   cfg.Format,
		minBytes: cfg.MinBytes,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		timeout:  cfg.Timeout,
		cookies:  source.ValidCookiesFile(cfg.YouTubeCookies),
	}
	if d.attempts <= 0 {
		d.attempts = 3
	}

	switch {
	case cfg.ProxyFile != "":
		pool, err := LoadProxyFile(cfg.ProxyFile)
		if err != nil {
			log.Printf("[yt-dlp] %v, continuing without proxies", err)
		} else {
			d.proxies = pool
		}
	case cfg.Proxy != "":
		d.proxies = NewProxyPool(cfg.Proxy)
	}
	return d
}

// Download saves item under destDir as <externalId>.mp4 and returns the path.
func (d *Downloader) Download(ctx context.Context, item source.MediaItem, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}
	outPath := filepath.Join(destDir, storage.SanitizeName(item.ExternalID)+".mp4")

	path, out := retry.Do(ctx, retry.Policy{
		Attempts: d.attempts,
		Backoff:  retry.Fixed(d.delay),
		OnRetry: func(attempt int, err error) {
			log.Printf("[yt-dlp] %s attempt %d/%d failed: %v", item.ExternalID, attempt, d.attempts, err)
		},
	}, func(ctx context.Context, attempt int) (string, error) {
		return d.attempt(ctx, item, outPath)
	})
	if out.Err != nil {
		return "", &DownloadError{URL: item.URL, Attempts: out.Attempts, Err: out.Err}
	}

	log.Printf("[yt-dlp] downloaded %s", path)
	return path, nil
}

func (d *Downloader) attempt(ctx context.Context, item source.MediaItem, outPath string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.fetcher.Fetch(ctx, item.URL, outPath, d.options(item.Platform)); err != nil {
		removePartial(outPath)
		return "", err
	}

	fi, err := os.Stat(outPath)
	if err != nil {
		removePartial(outPath)
		return "", fmt.Errorf("output file not created: %w", err)
	}
	if fi.Size() < d.minBytes {
		removePartial(outPath)
		return "", fmt.Errorf("%w (%d bytes)", ErrUndersized, fi.Size())
	}
	return outPath, nil
}

// options selects the platform-specific fetch parameters.
func (d *Downloader) options(p source.Platform) FetchOptions {
	opts := FetchOptions{
		Format:    d.format,
		UserAgent: desktopUserAgent,
		Proxy:     d.proxies.Next(),
	}
	switch p {
	case source.PlatformYouTube:
		opts.Referer = "https://www.youtube.com/"
		opts.Cookies = d.cookies
		opts.ExtractorArgs = "youtube:player_client=web,android"
	case source.PlatformTikTok:
		opts.Referer = "https://www.tiktok.com/"
		opts.Format = "best"
	case source.PlatformInstagram:
		opts.Referer = "https://www.instagram.com/"
	case source.PlatformTwitter:
		opts.Referer = "https://x.com/"
	}
	return opts
}

// removePartial deletes the output and any yt-dlp fragments next to it.
func removePartial(outPath string) {
	for _, p := range []string{outPath, outPath + ".part", outPath + ".ytdl"} {
		if err := os.Remove(p); err == nil {
			log.Printf("[yt-dlp] removed partial file %s", filepath.Base(p))
		}
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
