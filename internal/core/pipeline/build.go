package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/Dev-derah/simple-content-ai/internal/core/ai/generator"
	"github.com/Dev-derah/simple-content-ai/internal/core/ai/transcriber"
	"github.com/Dev-derah/simple-content-ai/internal/core/cache"
	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/media"
	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

// Build wires the production collaborators from cfg. The returned
// orchestrator must be closed to release the cache connection.
func Build(ctx context.Context, cfg *config.Config) (*Orchestrator, error) {
	gen, err := generator.New(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	engine := repurpose.NewEngine(gen, cfg.Generation, cfg.Platforms)

	ffmpeg := media.NewFFmpeg(cfg.Audio.FFmpegBin)
	log.Printf("[ffmpeg] using %s", ffmpeg.Name())

	tr, err := transcriber.New(cfg.Transcription)
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	tc := cfg.Transcription
	stt := transcriber.WithChunking(
		transcriber.WithRetry(tr, tc.Attempts, tc.Backoff, tc.Timeout),
		media.NewChunker(ffmpeg),
	)

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		log.Printf("[pipeline] %v, continuing without transcript cache", err)
		store = cache.Noop{}
	}

	return New(cfg, Deps{
		Sources:     source.DefaultRegistry(),
		Downloader:  media.NewDownloader(nil, cfg.Download),
		Extractor:   media.NewAudioExtractor(ffmpeg, cfg.Audio.SampleRate, cfg.Audio.Timeout),
		Transcriber: stt,
		Repurposer:  engine,
		Cache:       store,
	}), nil
}

// BuildTextOnly wires only the repurposing engine, for callers that never
// acquire media.
func BuildTextOnly(cfg *config.Config) (*Orchestrator, error) {
	gen, err := generator.New(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	return New(cfg, Deps{Repurposer: repurpose.NewEngine(gen, cfg.Generation, cfg.Platforms)}), nil
}

// Close releases the orchestrator's resources.
func (o *Orchestrator) Close() error {
	return o.deps.Cache.Close()
}
