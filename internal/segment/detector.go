package segment

import (
	"fmt"
	"math"
)

// Detect scans a decoded signal and returns every maximal run of audio
// whose level stays at or below cfg.SilenceThreshDB for at least
// cfg.MinSilenceLenMs. The returned intervals are sorted by start, do not
// overlap, and lie within [0, signal.DurationMs()].
//
// A recording with no silence at all yields an empty slice, not an error.
// An empty or zero-duration signal returns ErrInvalidInput.
func Detect(signal Signal, cfg Config) ([]SilenceInterval, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(signal.Samples) == 0 || signal.SampleRate <= 0 || signal.DurationMs() <= 0 {
		return nil, fmt.Errorf("%w: empty or zero-duration signal", ErrInvalidInput)
	}

	totalMs := signal.DurationMs()

	var intervals []SilenceInterval
	silenceStart := int64(-1)

	for ms := int64(0); ms < totalMs; ms++ {
		if levelDB(signal, ms) <= cfg.SilenceThreshDB {
			if silenceStart < 0 {
				silenceStart = ms
			}
			continue
		}
		if silenceStart >= 0 {
			if ms-silenceStart >= cfg.MinSilenceLenMs {
				intervals = append(intervals, SilenceInterval{StartMs: silenceStart, EndMs: ms})
			}
			silenceStart = -1
		}
	}

	// A run that lasts to the end of the signal still counts.
	if silenceStart >= 0 && totalMs-silenceStart >= cfg.MinSilenceLenMs {
		intervals = append(intervals, SilenceInterval{StartMs: silenceStart, EndMs: totalMs})
	}

	return intervals, nil
}

// levelDB computes the RMS level in dBFS of the one-millisecond window
// starting at the given offset. Digital silence maps to -Inf, which always
// compares below any threshold.
func levelDB(signal Signal, ms int64) float64 {
	rate := int64(signal.SampleRate)
	lo := ms * rate / 1000
	hi := (ms + 1) * rate / 1000
	if hi > int64(len(signal.Samples)) {
		hi = int64(len(signal.Samples))
	}
	if lo >= hi {
		return math.Inf(-1)
	}

	var sum float64
	for _, v := range signal.Samples[lo:hi] {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(hi-lo))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
