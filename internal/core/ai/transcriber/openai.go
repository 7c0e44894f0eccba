package transcriber

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	openai "github.com/sashabaranov/go-openai"
)

// Whisper's own decoding thresholds: a segment above noSpeechThreshold whose
// average log probability is below logprobThreshold is treated as silence.
const (
	noSpeechThreshold = 0.6
	logprobThreshold  = -1.0
)

// OpenAI implements Transcriber using the OpenAI Whisper API or any
// endpoint compatible with it (Groq, local whisper servers).
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
}

// NewOpenAI creates a new OpenAI transcriber.
func NewOpenAI(cfg config.TranscriptionConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAI{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: strings.ToLower(strings.TrimSpace(cfg.Language)),
		prompt:   strings.TrimSpace(cfg.Prompt),
	}, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) request(filePath string) openai.AudioRequest {
	return openai.AudioRequest{
		Model:    o.model,
		FilePath: filePath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: o.language,
		Prompt:   o.prompt,
	}
}

// Transcribe converts an audio file to text using OpenAI Whisper.
func (o *OpenAI) Transcribe(ctx context.Context, filePath string) (*Result, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	resp, err := o.client.CreateTranscription(ctx, o.request(filePath))
	if err != nil {
		return nil, fmt.Errorf("transcription API error: %w", err)
	}

	result, dropped := resultFromResponse(resp)
	if dropped > 0 {
		log.Printf("[transcribe] %s: dropped %d silent segment(s)", filePath, dropped)
	}
	return result, nil
}

// resultFromResponse converts a verbose response, leaving out segments the
// model marked as probable silence. When any are left out, Text is rebuilt
// from the kept segments.
func resultFromResponse(resp openai.AudioResponse) (*Result, int) {
	result := &Result{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: seconds(resp.Duration),
	}

	dropped := 0
	var kept []string
	for _, seg := range resp.Segments {
		if seg.NoSpeechProb > noSpeechThreshold && seg.AvgLogprob < logprobThreshold {
			dropped++
			continue
		}
		result.Segments = append(result.Segments, Segment{
			Start: seconds(seg.Start),
			End:   seconds(seg.End),
			Text:  seg.Text,
		})
		if t := strings.TrimSpace(seg.Text); t != "" {
			kept = append(kept, t)
		}
	}
	if dropped > 0 {
		result.Text = strings.Join(kept, " ")
	}
	return result, dropped
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
