package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConfig(t *testing.T, minSilence int64, thresh float64, minDur, maxDur int64) Config {
	t.Helper()
	cfg, err := NewConfig(minSilence, thresh, minDur, maxDur)
	require.NoError(t, err)
	return cfg
}

// requirePartition asserts that segments cover [0, total) exactly with no
// gaps and no overlaps, and that no segment exceeds the cap.
func requirePartition(t *testing.T, segments []Segment, total int64, cfg Config) {
	t.Helper()
	require.NotEmpty(t, segments)

	pos := int64(0)
	for i, seg := range segments {
		assert.Equal(t, pos, seg.StartMs, "segment %d start", i)
		assert.Greater(t, seg.EndMs, seg.StartMs, "segment %d duration", i)
		assert.LessOrEqual(t, seg.DurationMs(), cfg.MaxDurationMs, "segment %d cap", i)
		pos = seg.EndMs
	}
	assert.Equal(t, total, pos, "segments must end at total duration")
}

func TestPlan_SingleNaturalBreak(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 8000)

	segments, err := Plan(10000, []SilenceInterval{{StartMs: 4000, EndMs: 4200}}, cfg)
	require.NoError(t, err)

	expected := []Segment{
		{StartMs: 0, EndMs: 4100},
		{StartMs: 4100, EndMs: 10000},
	}
	assert.Equal(t, expected, segments)
}

func TestPlan_NoSilenceForcesHardSplit(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 15000)

	segments, err := Plan(20000, nil, cfg)
	require.NoError(t, err)

	expected := []Segment{
		{StartMs: 0, EndMs: 15000},
		{StartMs: 15000, EndMs: 20000},
	}
	assert.Equal(t, expected, segments)
}

func TestPlan_TooShortTailKept(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 10000)

	// The midpoint at 8500 leaves a 500ms tail, well below the minimum.
	// Coverage wins: the tail is emitted as-is, not merged or dropped.
	segments, err := Plan(9000, []SilenceInterval{{StartMs: 8400, EndMs: 8600}}, cfg)
	require.NoError(t, err)

	expected := []Segment{
		{StartMs: 0, EndMs: 8500},
		{StartMs: 8500, EndMs: 9000},
	}
	assert.Equal(t, expected, segments)
}

func TestPlan_SkipsMidpointsBelowMinimum(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 8000)

	// Midpoint at 1000 is too close to the start, the one at 5000 closes
	// the segment naturally.
	silences := []SilenceInterval{
		{StartMs: 900, EndMs: 1100},
		{StartMs: 4900, EndMs: 5100},
	}
	segments, err := Plan(9000, silences, cfg)
	require.NoError(t, err)

	expected := []Segment{
		{StartMs: 0, EndMs: 5000},
		{StartMs: 5000, EndMs: 9000},
	}
	assert.Equal(t, expected, segments)
}

func TestPlan_ForcedSplitUsesEarliestSkippedMidpoint(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 8000)

	// The midpoints at 1000 and 1500 are both too close to the start; the
	// next one at 9000 overshoots the cap. The planner must back up to
	// the earliest skipped midpoint rather than cut mid-speech.
	silences := []SilenceInterval{
		{StartMs: 900, EndMs: 1100},
		{StartMs: 1400, EndMs: 1600},
		{StartMs: 8900, EndMs: 9100},
	}
	segments, err := Plan(12000, silences, cfg)
	require.NoError(t, err)

	requirePartition(t, segments, 12000, cfg)
	assert.Equal(t, Segment{StartMs: 0, EndMs: 1000}, segments[0])
	// After the forced split the remaining midpoints are re-walked from
	// the new boundary: 9000 - 1000 = 8000ms closes naturally at the cap.
	assert.Equal(t, Segment{StartMs: 1000, EndMs: 9000}, segments[1])
}

func TestPlan_HardCutWhenNoSkippedMidpointExists(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 8000)

	// One lonely midpoint far past the cap and nothing skipped before it:
	// the planner cuts at exactly start+max.
	silences := []SilenceInterval{{StartMs: 20900, EndMs: 21100}}
	segments, err := Plan(24000, silences, cfg)
	require.NoError(t, err)

	requirePartition(t, segments, 24000, cfg)
	assert.Equal(t, Segment{StartMs: 0, EndMs: 8000}, segments[0])
	assert.Equal(t, Segment{StartMs: 8000, EndMs: 16000}, segments[1])
	// From 16000 the midpoint at 21000 is finally reachable.
	assert.Equal(t, Segment{StartMs: 16000, EndMs: 21000}, segments[2])
	assert.Equal(t, Segment{StartMs: 21000, EndMs: 24000}, segments[3])
}

func TestPlan_SameMillisecondMidpointsTieBreak(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 8000)

	// Both intervals produce the midpoint 4100; the earlier interval wins
	// and the duplicate does not create a zero-length segment.
	silences := []SilenceInterval{
		{StartMs: 4000, EndMs: 4200},
		{StartMs: 4050, EndMs: 4150},
	}
	segments, err := Plan(10000, silences, cfg)
	require.NoError(t, err)

	expected := []Segment{
		{StartMs: 0, EndMs: 4100},
		{StartMs: 4100, EndMs: 10000},
	}
	assert.Equal(t, expected, segments)
}

func TestPlan_Deterministic(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 15000)

	silences := []SilenceInterval{
		{StartMs: 3000, EndMs: 3800},
		{StartMs: 9000, EndMs: 9700},
		{StartMs: 17000, EndMs: 18000},
		{StartMs: 30000, EndMs: 30900},
	}

	first, err := Plan(42000, silences, cfg)
	require.NoError(t, err)
	second, err := Plan(42000, silences, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	requirePartition(t, first, 42000, cfg)
}

func TestPlan_CoverageProperty(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 15000)

	tests := []struct {
		name     string
		totalMs  int64
		silences []SilenceInterval
	}{
		{
			name:    "dense silences",
			totalMs: 60000,
			silences: []SilenceInterval{
				{StartMs: 2500, EndMs: 3300}, {StartMs: 7000, EndMs: 7900},
				{StartMs: 12000, EndMs: 12800}, {StartMs: 19000, EndMs: 20100},
				{StartMs: 26000, EndMs: 26900}, {StartMs: 33000, EndMs: 34000},
				{StartMs: 41000, EndMs: 41800}, {StartMs: 52000, EndMs: 53200},
			},
		},
		{
			name:    "sparse silences",
			totalMs: 90000,
			silences: []SilenceInterval{
				{StartMs: 40000, EndMs: 41000},
				{StartMs: 85000, EndMs: 85800},
			},
		},
		{
			name:     "no silences",
			totalMs:  47500,
			silences: nil,
		},
		{
			name:    "silence at the very start and end",
			totalMs: 30000,
			silences: []SilenceInterval{
				{StartMs: 0, EndMs: 900},
				{StartMs: 29000, EndMs: 30000},
			},
		},
		{
			name:     "input shorter than minimum",
			totalMs:  1500,
			silences: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Plan(tt.totalMs, tt.silences, cfg)
			require.NoError(t, err)
			requirePartition(t, segments, tt.totalMs, cfg)
		})
	}
}

func TestPlan_UnsortedInputIsSortedStably(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 8000)

	sorted := []SilenceInterval{
		{StartMs: 3000, EndMs: 3400},
		{StartMs: 6500, EndMs: 7100},
	}
	shuffled := []SilenceInterval{sorted[1], sorted[0]}

	a, err := Plan(12000, sorted, cfg)
	require.NoError(t, err)
	b, err := Plan(12000, shuffled, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPlan_InvalidTotalDuration(t *testing.T) {
	cfg := mustConfig(t, 700, -35, 2000, 15000)

	for _, total := range []int64{0, -5} {
		_, err := Plan(total, nil, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestNewConfig_Rejection(t *testing.T) {
	tests := []struct {
		name       string
		minSilence int64
		thresh     float64
		minDur     int64
		maxDur     int64
	}{
		{"min above max", 700, -35, 5000, 3000},
		{"min equals max", 700, -35, 5000, 5000},
		{"zero min duration", 700, -35, 0, 15000},
		{"negative silence length", -1, -35, 2000, 15000},
		{"threshold at full scale", 700, 0, 2000, 15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.minSilence, tt.thresh, tt.minDur, tt.maxDur)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}
