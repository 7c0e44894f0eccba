package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxFileSize is the largest file sent to a transcription API in one piece (25MB for OpenAI Whisper)
	MaxFileSize = 25 * 1024 * 1024

	// ChunkDuration is the length of each chunk when a file is split
	ChunkDuration = 10 * time.Minute

	// OverlapDuration is the overlap between chunks so words at a boundary are not lost
	OverlapDuration = 5 * time.Second
)

// Chunk is one piece of a split audio file.
type Chunk struct {
	Index int
	Path  string
	Start time.Duration
	End   time.Duration
}

// Chunker splits WAV files that are too large for a single transcription call.
type Chunker struct {
	ffmpeg      FFmpeg
	maxFileSize int64
	chunkDur    time.Duration
	overlap     time.Duration
}

// NewChunker creates a Chunker with default limits.
func NewChunker(ffmpeg FFmpeg) *Chunker {
	return &Chunker{
		ffmpeg:      ffmpeg,
		maxFileSize: MaxFileSize,
		chunkDur:    ChunkDuration,
		overlap:     OverlapDuration,
	}
}

// NeedsSplit reports whether path exceeds the single-call size limit.
func (c *Chunker) NeedsSplit(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return fi.Size() > c.maxFileSize, nil
}

// Split cuts path into overlapping chunks next to it and returns them in order.
func (c *Chunker) Split(ctx context.Context, path string) ([]Chunk, error) {
	duration, err := WAVDuration(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(absPath)
	dir := filepath.Join(filepath.Dir(absPath), strings.TrimSuffix(filepath.Base(absPath), ext)+".chunks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	bounds := chunkBounds(duration, c.chunkDur, c.overlap)
	chunks := make([]Chunk, 0, len(bounds))
	for i, b := range bounds {
		out := filepath.Join(dir, fmt.Sprintf("chunk_%03d%s", i+1, ext))
		args := []string{
			"-y",
			"-ss", seconds(b[0]),
			"-t", seconds(b[1] - b[0]),
			"-i", absPath,
			"-c", "copy",
			out,
		}
		if err := c.ffmpeg.Run(ctx, args, filepath.Dir(absPath), dir); err != nil {
			return nil, fmt.Errorf("failed to extract chunk %d: %w", i+1, err)
		}
		chunks = append(chunks, Chunk{Index: i + 1, Path: out, Start: b[0], End: b[1]})
	}
	return chunks, nil
}

// chunkBounds returns [start, end) pairs covering total with the given overlap.
func chunkBounds(total, size, overlap time.Duration) [][2]time.Duration {
	if total <= 0 || size <= 0 {
		return nil
	}
	stride := size - overlap
	if stride <= 0 {
		stride = size
	}
	var out [][2]time.Duration
	for start := time.Duration(0); start < total; start += stride {
		end := start + size
		if end >= total {
			out = append(out, [2]time.Duration{start, total})
			break
		}
		out = append(out, [2]time.Duration{start, end})
	}
	return out
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
