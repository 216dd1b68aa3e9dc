package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cerdastangkas/audio-result-transcriber/internal/segment"
)

// Static errors for ffmpeg operations.
var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("audio: input file does not exist")
	// ErrNoDuration is returned when ffprobe output has no usable duration.
	ErrNoDuration = errors.New("audio: could not parse duration")
	// ErrNoVolumeInfo is returned when volumedetect output has no mean
	// volume line. Callers treat the segment as valid in that case.
	ErrNoVolumeInfo = errors.New("audio: no mean volume in ffmpeg output")
)

// FFmpeg drives the ffmpeg and ffprobe CLIs.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates an FFmpeg wrapper. Empty paths default to "ffmpeg"
// and "ffprobe" resolved from PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Compile-time interface checks.
var (
	_ Prober       = (*FFmpeg)(nil)
	_ Detector     = (*FFmpeg)(nil)
	_ Materializer = (*FFmpeg)(nil)
	_ Converter    = (*FFmpeg)(nil)
	_ VolumeProber = (*FFmpeg)(nil)
)

// DurationMs returns the total duration of an audio file in milliseconds
// using ffprobe.
func (f *FFmpeg) DurationMs(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("audio: ffprobe: %w, stderr: %s", err, stderr.String())
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, stdout.String())
	}
	return int64(math.Round(seconds * 1000)), nil
}

// DetectSilences runs ffmpeg silencedetect over the file and returns the
// detected intervals in milliseconds.
func (f *FFmpeg) DetectSilences(ctx context.Context, path string, cfg segment.Config) ([]segment.SilenceInterval, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%g",
		cfg.SilenceThreshDB,
		float64(cfg.MinSilenceLenMs)/1000.0,
	)

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", path,
		"-af", filter,
		"-f", "null",
		"-hide_banner",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// silencedetect logs to stderr alongside ffmpeg's own noise.
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("audio: silencedetect: %w, stderr: %s", err, stderr.String())
	}

	return parseSilenceOutput(stderr.String()), nil
}

// parseSilenceOutput extracts silence_start/silence_end pairs from
// silencedetect stderr output.
func parseSilenceOutput(output string) []segment.SilenceInterval {
	startRe := regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	endRe := regexp.MustCompile(`silence_end:\s*([\d.]+)`)

	var intervals []segment.SilenceInterval
	var currentStart int64
	hasStart := false

	for _, line := range strings.Split(output, "\n") {
		if m := startRe.FindStringSubmatch(line); len(m) > 1 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				currentStart = int64(math.Round(v * 1000))
				hasStart = true
			}
		}
		if m := endRe.FindStringSubmatch(line); len(m) > 1 && hasStart {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				end := int64(math.Round(v * 1000))
				if end > currentStart {
					intervals = append(intervals, segment.SilenceInterval{
						StartMs: currentStart,
						EndMs:   end,
					})
				}
				hasStart = false
			}
		}
	}

	return intervals
}

// Materialize extracts the segment range plus trailing padding as an
// OGG/Vorbis chunk. The same (input, segment) pair always produces the
// same output bytes, which keeps retries safe.
func (f *FFmpeg) Materialize(ctx context.Context, inputPath string, seg segment.Segment, outputPath string, opts ExtractOpts) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0750); err != nil {
		return fmt.Errorf("audio: create output directory: %w", err)
	}

	durationMs := seg.DurationMs() + opts.PadMs

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-ss", formatSeconds(seg.StartMs),
		"-i", inputPath,
		"-t", formatSeconds(durationMs),
		"-c:a", "libvorbis",
		"-q:a", strconv.Itoa(opts.VorbisQuality),
		"-avoid_negative_ts", "1",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio: extract segment [%d,%d)ms: %w, stderr: %s",
			seg.StartMs, seg.EndMs, err, stderr.String())
	}
	return nil
}

// ConvertToWAV transcodes a chunk into 16kHz mono 16-bit PCM WAV, the
// format downstream dataset consumers expect.
func (f *FFmpeg) ConvertToWAV(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-i", src,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dst,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio: convert to wav: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

// MeanVolumeDB measures the mean volume of a time range using the
// volumedetect filter. It returns ErrNoVolumeInfo when ffmpeg produced no
// measurement; callers should not reject a segment on that basis.
func (f *FFmpeg) MeanVolumeDB(ctx context.Context, path string, startMs, durationMs int64) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", path,
		"-ss", formatSeconds(startMs),
		"-t", formatSeconds(durationMs),
		"-af", "volumedetect",
		"-f", "null",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// A failed run simply yields no measurement.
	_ = cmd.Run()

	mean, ok := parseMeanVolume(stderr.String())
	if !ok {
		return 0, ErrNoVolumeInfo
	}
	return mean, nil
}

var meanVolumeRe = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+)\s*dB`)

// parseMeanVolume extracts the mean_volume value from volumedetect output.
func parseMeanVolume(output string) (float64, bool) {
	m := meanVolumeRe.FindStringSubmatch(output)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// formatSeconds renders a millisecond offset as fractional seconds for
// ffmpeg arguments.
func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}
