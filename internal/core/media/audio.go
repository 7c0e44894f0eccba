package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// ExtractionError means no usable audio could be produced from a video.
// Extraction is not retried.
type ExtractionError struct {
	VideoPath string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract audio from %s: %v", filepath.Base(e.VideoPath), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// AudioExtractor converts a video into mono 16-bit PCM WAV at a fixed rate.
type AudioExtractor struct {
	ffmpeg     FFmpeg
	sampleRate int
	timeout    time.Duration
}

// NewAudioExtractor creates an extractor. sampleRate <= 0 means 16000.
func NewAudioExtractor(ffmpeg FFmpeg, sampleRate int, timeout time.Duration) *AudioExtractor {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &AudioExtractor{ffmpeg: ffmpeg, sampleRate: sampleRate, timeout: timeout}
}

// ExtractArgs returns the ffmpeg arguments for the fixed audio contract.
func ExtractArgs(in, out string, sampleRate int) []string {
	return []string{
		"-y",
		"-i", in,
		"-map", "0:a:0",
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		out,
	}
}

// Extract writes destDir/<video name>.wav and returns its path.
func (a *AudioExtractor) Extract(ctx context.Context, videoPath, destDir string) (string, error) {
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}
	if err := os.MkdirAll(absDest, 0755); err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(absVideo), filepath.Ext(absVideo))
	out := filepath.Join(absDest, base+".wav")

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	log.Printf("[%s] extracting audio: %s", a.ffmpeg.Name(), filepath.Base(absVideo))
	if err := a.ffmpeg.Run(ctx, ExtractArgs(absVideo, out, a.sampleRate), filepath.Dir(absVideo), absDest); err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}

	fi, err := os.Stat(out)
	if err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: fmt.Errorf("output file not created: %w", err)}
	}
	if fi.Size() == 0 {
		_ = os.Remove(out)
		return "", &ExtractionError{VideoPath: videoPath, Err: fmt.Errorf("output file is empty")}
	}

	if err := VerifyWAV(out, a.sampleRate); err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}

	log.Printf("[%s] audio ready: %s (%d bytes)", a.ffmpeg.Name(), filepath.Base(out), fi.Size())
	return out, nil
}

// VerifyWAV checks that path is a mono WAV at sampleRate.
func VerifyWAV(path string, sampleRate int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s is not a valid WAV file", filepath.Base(path))
	}
	if dec.NumChans != 1 {
		return fmt.Errorf("expected mono audio, got %d channels", dec.NumChans)
	}
	if int(dec.SampleRate) != sampleRate {
		return fmt.Errorf("expected %d Hz audio, got %d Hz", sampleRate, dec.SampleRate)
	}
	return nil
}

// WAVDuration returns the playback length of a WAV file.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid WAV file", filepath.Base(path))
	}
	return dec.Duration()
}
