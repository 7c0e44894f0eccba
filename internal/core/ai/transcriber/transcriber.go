// Package transcriber provides speech-to-text transcription.
package transcriber

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

// Segment represents a timestamped portion of transcript.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Result contains the transcription output.
type Result struct {
	Text     string        // Transcript from speech-to-text
	Segments []Segment     // Timestamped segments, when the provider returns them
	Language string        // Detected language
	Duration time.Duration // Audio duration
}

// FormattedText returns the transcript with timestamps in format [HH:MM:SS] Text
func (r *Result) FormattedText() string {
	if len(r.Segments) == 0 {
		return r.Text
	}

	var b strings.Builder
	for _, seg := range r.Segments {
		fmt.Fprintf(&b, "[%s] %s\n", formatTimestamp(seg.Start), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// formatTimestamp converts duration to HH:MM:SS format
func formatTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Transcriber converts audio to text.
type Transcriber interface {
	// Transcribe converts an audio file to text.
	Transcribe(ctx context.Context, filePath string) (*Result, error)

	// Name returns the provider name.
	Name() string
}

// New creates a new Transcriber based on configuration.
func New(cfg config.TranscriptionConfig) (Transcriber, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s", cfg.Provider)
	}
}
