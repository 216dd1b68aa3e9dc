package segment

import (
	"fmt"
	"sort"
)

// Plan turns detected silence intervals into a contiguous sequence of
// duration-bounded speech segments covering [0, totalDurationMs).
//
// Segment boundaries fall only at silence-interval midpoints, at zero, at
// totalDurationMs, or at a forced cut when a segment would otherwise grow
// past cfg.MaxDurationMs. The walk is greedy and single-pass: a midpoint
// closes the running segment as soon as it yields a length within
// [MinDurationMs, MaxDurationMs]. When the running segment overshoots the
// cap, the earliest midpoint that was previously skipped as too short is
// used instead; if none exists, the segment is cut at exactly
// MaxDurationMs with no regard to silence. No segment ever exceeds the
// cap. Naturally closed segments always satisfy the minimum bound; a
// forced split at a skipped midpoint and the trailing segment may undercut
// it, because breaking at silence and full coverage of the input win over
// the minimum there.
//
// Plan assumes cfg was validated at construction. It returns
// ErrInvalidInput for a non-positive total duration and ErrInvariant if
// the result fails its own coverage check.
func Plan(totalDurationMs int64, silences []SilenceInterval, cfg Config) ([]Segment, error) {
	if totalDurationMs <= 0 {
		return nil, fmt.Errorf("%w: total duration %dms", ErrInvalidInput, totalDurationMs)
	}

	cuts := cutPoints(silences)

	segments := make([]Segment, 0, totalDurationMs/cfg.MaxDurationMs+1)
	start := int64(0)
	var skipped []int64 // midpoints too close to start, in order

	for i := 0; i < len(cuts); {
		c := cuts[i]
		if c <= start || c >= totalDurationMs {
			i++
			continue
		}

		length := c - start
		switch {
		case length < cfg.MinDurationMs:
			skipped = append(skipped, c)
			i++

		case length <= cfg.MaxDurationMs:
			segments = append(segments, Segment{StartMs: start, EndMs: c})
			start = c
			skipped = skipped[:0]
			i++

		default:
			// Overshot the cap without a usable midpoint in between.
			if len(skipped) > 0 {
				start = forceSplit(&segments, start, skipped[0])
				skipped = skipped[:0]
				// Re-walk the midpoints that now fall after the new
				// boundary; some of the skipped ones may have become
				// valid cuts.
				for i > 0 && cuts[i-1] > start {
					i--
				}
			} else {
				start = forceSplit(&segments, start, start+cfg.MaxDurationMs)
				// Stay on the same midpoint and measure it against
				// the new boundary.
			}
		}
	}

	// Hard-cut the tail down to the cap, then keep whatever remains even
	// if it is shorter than the minimum.
	for totalDurationMs-start > cfg.MaxDurationMs {
		start = forceSplit(&segments, start, start+cfg.MaxDurationMs)
	}
	if start < totalDurationMs {
		segments = append(segments, Segment{StartMs: start, EndMs: totalDurationMs})
	}

	if err := checkCoverage(segments, totalDurationMs, cfg); err != nil {
		return nil, err
	}
	return segments, nil
}

// cutPoints maps silence intervals to candidate boundaries: one midpoint
// per interval, in interval order. When two intervals land a midpoint on
// the same millisecond the earlier interval wins, so the sort must be
// stable on StartMs.
func cutPoints(silences []SilenceInterval) []int64 {
	ordered := make([]SilenceInterval, len(silences))
	copy(ordered, silences)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartMs < ordered[j].StartMs
	})

	cuts := make([]int64, 0, len(ordered))
	for _, s := range ordered {
		m := s.MidpointMs()
		if len(cuts) > 0 && m <= cuts[len(cuts)-1] {
			continue // same-millisecond duplicate, earliest interval already won
		}
		cuts = append(cuts, m)
	}
	return cuts
}

// forceSplit closes the running segment at the given boundary and returns
// it as the new segment start.
func forceSplit(segments *[]Segment, start, at int64) int64 {
	*segments = append(*segments, Segment{StartMs: start, EndMs: at})
	return at
}

// checkCoverage is the defensive invariant check: segments must partition
// [0, total) exactly and never exceed the cap. A failure here is a defect
// in the planner itself, so it surfaces as ErrInvariant rather than a
// recoverable condition. The minimum bound is not checked: a forced split
// at a skipped midpoint legitimately undercuts it, as does the trailing
// segment.
func checkCoverage(segments []Segment, totalDurationMs int64, cfg Config) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments for %dms input", ErrInvariant, totalDurationMs)
	}

	pos := int64(0)
	for i, seg := range segments {
		if seg.StartMs != pos {
			return fmt.Errorf("%w: segment %d starts at %dms, expected %dms", ErrInvariant, i, seg.StartMs, pos)
		}
		d := seg.DurationMs()
		if d <= 0 {
			return fmt.Errorf("%w: segment %d has non-positive duration", ErrInvariant, i)
		}
		if d > cfg.MaxDurationMs {
			return fmt.Errorf("%w: segment %d duration %dms exceeds cap %dms", ErrInvariant, i, d, cfg.MaxDurationMs)
		}
		pos = seg.EndMs
	}
	if pos != totalDurationMs {
		return fmt.Errorf("%w: segments end at %dms, expected %dms", ErrInvariant, pos, totalDurationMs)
	}
	return nil
}
