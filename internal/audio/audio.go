// Package audio provides the ffmpeg-backed collaborators around the
// segmentation core: duration probing, production silence detection, chunk
// extraction and format conversion. The core never shells out itself; it
// consumes what these collaborators produce.
package audio

import (
	"context"

	"github.com/cerdastangkas/audio-result-transcriber/internal/segment"
)

// ExtractOpts configures chunk extraction.
type ExtractOpts struct {
	// PadMs is trailing padding appended to each chunk so a word cut at
	// a silence midpoint keeps its decay. The pipeline uses half of the
	// configured minimum silence length.
	PadMs int64

	// VorbisQuality is the libvorbis -q:a setting (0-10).
	VorbisQuality int
}

// DefaultExtractOpts returns the extraction settings used by the pipeline:
// 350ms of trailing padding and Vorbis quality 4.
func DefaultExtractOpts() ExtractOpts {
	return ExtractOpts{
		PadMs:         350,
		VorbisQuality: 4,
	}
}

// Prober reports metadata about an audio file.
type Prober interface {
	// DurationMs returns the total duration of the file in milliseconds.
	DurationMs(ctx context.Context, path string) (int64, error)
}

// Detector finds silence intervals in an encoded audio file. It is the
// production counterpart of segment.Detect for inputs that are never fully
// decoded into memory.
type Detector interface {
	// DetectSilences returns the silence intervals of the file, sorted
	// by start and non-overlapping. An empty result is valid output.
	DetectSilences(ctx context.Context, path string, cfg segment.Config) ([]segment.SilenceInterval, error)
}

// Materializer extracts a planned segment as an independent audio
// artifact. Materializing the same segment from the same input twice
// yields identical output, which is what allows retries upstream.
type Materializer interface {
	// Materialize writes the sample range of seg (plus trailing padding)
	// from inputPath to outputPath as an OGG/Vorbis file.
	Materialize(ctx context.Context, inputPath string, seg segment.Segment, outputPath string, opts ExtractOpts) error
}

// VolumeProber measures the loudness of a time range. Used to skip
// segments the planner produced over stretches with no audible content.
type VolumeProber interface {
	// MeanVolumeDB returns the mean volume of the range in dBFS. It
	// returns ErrNoVolumeInfo when no measurement could be made; callers
	// must treat the range as valid in that case.
	MeanVolumeDB(ctx context.Context, path string, startMs, durationMs int64) (float64, error)
}

// Converter transcodes chunks into the format the transcript consumers
// expect.
type Converter interface {
	// ConvertToWAV transcodes src into 16kHz mono 16-bit PCM WAV at dst.
	ConvertToWAV(ctx context.Context, src, dst string) error
}
