package transcriber

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/media"
)

// Splitter cuts oversized audio into pieces a provider accepts.
type Splitter interface {
	NeedsSplit(path string) (bool, error)
	Split(ctx context.Context, path string) ([]media.Chunk, error)
}

// Chunked transcribes large files piece by piece and joins the text.
type Chunked struct {
	next     Transcriber
	splitter Splitter
}

// WithChunking wraps t so files over the splitter's limit are split first.
func WithChunking(t Transcriber, s Splitter) *Chunked {
	return &Chunked{next: t, splitter: s}
}

func (c *Chunked) Name() string {
	return c.next.Name()
}

func (c *Chunked) Transcribe(ctx context.Context, filePath string) (*Result, error) {
	need, err := c.splitter.NeedsSplit(filePath)
	if err != nil {
		return nil, err
	}
	if !need {
		return c.next.Transcribe(ctx, filePath)
	}

	chunks, err := c.splitter.Split(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to split audio: %w", err)
	}
	log.Printf("[transcribe] split into %d chunks", len(chunks))

	merged := &Result{}
	var texts []string
	// heard is the end of the last kept segment. Chunks overlap, so segments
	// starting before it were already transcribed from the previous chunk.
	var heard time.Duration
	for _, ch := range chunks {
		res, err := c.next.Transcribe(ctx, ch.Path)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", ch.Index, err)
		}
		if merged.Language == "" {
			merged.Language = res.Language
		}

		text := strings.TrimSpace(res.Text)
		var kept []string
		dropped := 0
		for _, seg := range res.Segments {
			seg.Start += ch.Start
			seg.End += ch.Start
			if seg.Start < heard {
				dropped++
				continue
			}
			merged.Segments = append(merged.Segments, seg)
			if seg.End > heard {
				heard = seg.End
			}
			if t := strings.TrimSpace(seg.Text); t != "" {
				kept = append(kept, t)
			}
		}
		if dropped > 0 {
			text = strings.Join(kept, " ")
		}
		if text != "" {
			texts = append(texts, text)
		}

		if end := ch.End; end > merged.Duration {
			merged.Duration = end
		}
	}
	merged.Text = strings.Join(texts, " ")
	return merged, nil
}
