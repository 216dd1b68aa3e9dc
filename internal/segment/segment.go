// Package segment contains the silence-based segmentation core: the data
// model for decoded audio, detected silence intervals and planned speech
// segments, plus the pure Detect and Plan functions that operate on them.
//
// Nothing in this package performs I/O. Both Detect and Plan are
// deterministic functions of their inputs, which makes them safe to call
// concurrently for independent recordings without synchronization.
package segment

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Static errors for the segmentation core.
var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("segment: invalid config")
	// ErrInvalidInput is returned for an empty or zero-duration signal.
	ErrInvalidInput = errors.New("segment: invalid input")
	// ErrInvariant is returned when a planned segment list fails the
	// coverage check. It indicates a programming defect, not bad input.
	ErrInvariant = errors.New("segment: planning invariant violated")
)

// validate is shared by all Config constructions.
var validate = validator.New()

// Config holds the segmentation parameters for a single run.
// A Config is immutable once constructed and is validated up front so that
// planning never has to deal with an unreachable duration window.
type Config struct {
	// MinSilenceLenMs is the minimum silence duration in milliseconds
	// for an interval to count as a cut candidate.
	MinSilenceLenMs int64 `validate:"gt=0"`

	// SilenceThreshDB is the amplitude threshold in dBFS at or below
	// which audio is considered silent.
	SilenceThreshDB float64 `validate:"lt=0"`

	// MinDurationMs is the minimum planned segment duration. Only the
	// trailing segment of an input may fall below it.
	MinDurationMs int64 `validate:"gt=0"`

	// MaxDurationMs is the hard cap on segment duration. No segment
	// ever exceeds it, silence or not.
	MaxDurationMs int64 `validate:"gt=0,gtfield=MinDurationMs"`
}

// DefaultConfig returns the segmentation parameters used by the pipeline
// when nothing is overridden: 700ms minimum silence at -35dBFS, segments
// between 2 and 15 seconds.
func DefaultConfig() Config {
	return Config{
		MinSilenceLenMs: 700,
		SilenceThreshDB: -35,
		MinDurationMs:   2000,
		MaxDurationMs:   15000,
	}
}

// NewConfig builds a validated Config. It returns ErrInvalidConfig if any
// duration is non-positive, the threshold is not below full scale, or
// MinDurationMs is not strictly less than MaxDurationMs.
func NewConfig(minSilenceLenMs int64, silenceThreshDB float64, minDurationMs, maxDurationMs int64) (Config, error) {
	cfg := Config{
		MinSilenceLenMs: minSilenceLenMs,
		SilenceThreshDB: silenceThreshDB,
		MinDurationMs:   minDurationMs,
		MaxDurationMs:   maxDurationMs,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the Config against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SilenceInterval is a detected stretch of silence, in milliseconds from
// the start of the recording. Intervals are sorted by StartMs and pairwise
// non-overlapping.
type SilenceInterval struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// DurationMs returns the interval length.
func (s SilenceInterval) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// MidpointMs returns the interval midpoint, the only point inside a
// silence where a segment boundary may fall.
func (s SilenceInterval) MidpointMs() int64 {
	return s.StartMs + (s.EndMs-s.StartMs)/2
}

// Segment is a planned speech segment. Segments produced by Plan are
// contiguous and cover the whole input with no gaps or overlaps.
type Segment struct {
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
	SourceRef string `json:"source_ref,omitempty"`
}

// DurationMs returns the segment length.
func (s Segment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// Signal is a decoded audio signal: normalized samples in [-1, 1] at a
// fixed sample rate. A Signal is owned by the run that decoded it and is
// never mutated by this package.
type Signal struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// DurationMs returns the total signal duration in milliseconds.
func (s Signal) DurationMs() int64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return int64(len(s.Samples)) * 1000 / int64(s.SampleRate)
}
