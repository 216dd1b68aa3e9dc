package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerdastangkas/audio-result-transcriber/internal/segment"
)

func testRecords() []Record {
	return []Record{
		{AudioFile: "split/lecture_segment_000.ogg", StartSec: 0, EndSec: 4.1, DurationSec: 4.1},
		{AudioFile: "split/lecture_segment_001.ogg", StartSec: 4.1, EndSec: 10, DurationSec: 5.9},
		{AudioFile: "split/lecture_segment_002.ogg", StartSec: 10, EndSec: 13.5, DurationSec: 3.5},
	}
}

func TestTranscriptCSV_WriteReadRoundTrip(t *testing.T) {
	csvFile := NewTranscriptCSV(filepath.Join(t.TempDir(), "lecture_transcripts.csv"))

	require.NoError(t, csvFile.Write(testRecords()))

	records, err := csvFile.Read()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "split/lecture_segment_001.ogg", records[1].AudioFile)
	assert.InDelta(t, 4.1, records[1].StartSec, 0.001)
	assert.InDelta(t, 5.9, records[1].DurationSec, 0.001)
	assert.Empty(t, records[1].Text)
}

func TestTranscriptCSV_SetText(t *testing.T) {
	csvFile := NewTranscriptCSV(filepath.Join(t.TempDir(), "t.csv"))
	require.NoError(t, csvFile.Write(testRecords()))

	require.NoError(t, csvFile.SetText("split/lecture_segment_001.ogg", "selamat pagi"))

	records, err := csvFile.Read()
	require.NoError(t, err)
	assert.Equal(t, "selamat pagi", records[1].Text)
	assert.Empty(t, records[0].Text)
}

func TestTranscriptCSV_SetTextMatchesAcrossExtensions(t *testing.T) {
	csvFile := NewTranscriptCSV(filepath.Join(t.TempDir(), "t.csv"))
	require.NoError(t, csvFile.Write(testRecords()))

	// The row was written for the OGG chunk but the transcription may
	// reference the converted WAV.
	require.NoError(t, csvFile.SetText("split/lecture_segment_002.wav", "terima kasih banyak"))

	records, err := csvFile.Read()
	require.NoError(t, err)
	assert.Equal(t, "terima kasih banyak", records[2].Text)
}

func TestTranscriptCSV_SetTextMissingRecord(t *testing.T) {
	csvFile := NewTranscriptCSV(filepath.Join(t.TempDir(), "t.csv"))
	require.NoError(t, csvFile.Write(testRecords()))

	err := csvFile.SetText("split/other_segment_009.ogg", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTranscriptCSV_Remove(t *testing.T) {
	csvFile := NewTranscriptCSV(filepath.Join(t.TempDir(), "t.csv"))
	require.NoError(t, csvFile.Write(testRecords()))

	require.NoError(t, csvFile.Remove("split/lecture_segment_001.ogg"))

	records, err := csvFile.Read()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "split/lecture_segment_000.ogg", records[0].AudioFile)
	assert.Equal(t, "split/lecture_segment_002.ogg", records[1].AudioFile)

	// Removing an already absent row is fine.
	require.NoError(t, csvFile.Remove("split/lecture_segment_001.ogg"))
}

func TestTranscriptCSV_ReplaceExtension(t *testing.T) {
	csvFile := NewTranscriptCSV(filepath.Join(t.TempDir(), "t.csv"))
	require.NoError(t, csvFile.Write(testRecords()))

	require.NoError(t, csvFile.ReplaceExtension(".ogg", ".wav"))

	records, err := csvFile.Read()
	require.NoError(t, err)
	for _, r := range records {
		assert.Contains(t, r.AudioFile, ".wav")
	}
}

func TestSilenceReport_Save(t *testing.T) {
	cfg := segment.DefaultConfig()
	silences := []segment.SilenceInterval{{StartMs: 4000, EndMs: 4200}}
	segments := []segment.Segment{
		{StartMs: 0, EndMs: 4100},
		{StartMs: 4100, EndMs: 10000},
	}

	rep := NewSilenceReport("lecture.ogg", "run-1", 10000, cfg, silences, segments)
	path := filepath.Join(t.TempDir(), "lecture_silence_points.json")
	require.NoError(t, rep.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded SilenceReport
	require.NoError(t, json.Unmarshal(data, &loaded))

	assert.Equal(t, "lecture.ogg", loaded.Filename)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.InDelta(t, 10.0, loaded.TotalDuration, 0.001)
	require.Len(t, loaded.SilenceRanges, 1)
	assert.InDelta(t, 4.0, loaded.SilenceRanges[0].Start, 0.001)
	assert.InDelta(t, 0.2, loaded.SilenceRanges[0].Duration, 0.001)
	require.Len(t, loaded.Segments, 2)
	assert.InDelta(t, 4.1, loaded.Segments[0].End, 0.001)
	assert.Equal(t, int64(15000), loaded.Parameters.MaxDurationMs)
}
