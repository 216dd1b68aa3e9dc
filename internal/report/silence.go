package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cerdastangkas/audio-result-transcriber/internal/segment"
)

// TimeRange is a silence interval or planned segment expressed in seconds,
// the unit the JSON artifact has always used.
type TimeRange struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Parameters echoes the segmentation config a run was planned with.
type Parameters struct {
	MinDurationMs   int64   `json:"min_duration_ms"`
	MaxDurationMs   int64   `json:"max_duration_ms"`
	SilenceThreshDB float64 `json:"silence_thresh_db"`
	MinSilenceLenMs int64   `json:"min_silence_len_ms"`
}

// SilenceReport is the per-input JSON record of detected silence points
// and the segment boundaries chosen from them.
type SilenceReport struct {
	Filename      string      `json:"filename"`
	RunID         string      `json:"run_id"`
	TotalDuration float64     `json:"total_duration"`
	ProcessedAt   time.Time   `json:"processing_timestamp"`
	Parameters    Parameters  `json:"parameters"`
	SilenceRanges []TimeRange `json:"silence_ranges"`
	Segments      []TimeRange `json:"segments"`
}

// NewSilenceReport assembles a report from the planner's inputs and
// output.
func NewSilenceReport(filename, runID string, totalDurationMs int64, cfg segment.Config, silences []segment.SilenceInterval, segments []segment.Segment) SilenceReport {
	rep := SilenceReport{
		Filename:      filename,
		RunID:         runID,
		TotalDuration: float64(totalDurationMs) / 1000,
		ProcessedAt:   time.Now().UTC(),
		Parameters: Parameters{
			MinDurationMs:   cfg.MinDurationMs,
			MaxDurationMs:   cfg.MaxDurationMs,
			SilenceThreshDB: cfg.SilenceThreshDB,
			MinSilenceLenMs: cfg.MinSilenceLenMs,
		},
		SilenceRanges: make([]TimeRange, 0, len(silences)),
		Segments:      make([]TimeRange, 0, len(segments)),
	}
	for _, s := range silences {
		rep.SilenceRanges = append(rep.SilenceRanges, msRange(s.StartMs, s.EndMs))
	}
	for _, s := range segments {
		rep.Segments = append(rep.Segments, msRange(s.StartMs, s.EndMs))
	}
	return rep
}

// Save writes the report as indented JSON.
func (r SilenceReport) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("report: create silence points directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal silence report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write silence report: %w", err)
	}
	return nil
}

func msRange(startMs, endMs int64) TimeRange {
	return TimeRange{
		Start:    float64(startMs) / 1000,
		End:      float64(endMs) / 1000,
		Duration: float64(endMs-startMs) / 1000,
	}
}
