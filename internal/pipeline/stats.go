package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// BatchStats aggregates a directory run for the end-of-batch summary.
type BatchStats struct {
	Files            int
	Failed           int
	Segments         int
	Transcribed      int
	Rejected         int
	AudioDurationSec float64
}

// Stats computes the aggregate numbers for a batch result.
func (r *BatchResult) Stats() BatchStats {
	s := BatchStats{
		Files:  len(r.Processed) + len(r.Failed),
		Failed: len(r.Failed),
	}
	for _, f := range r.Processed {
		s.Segments += f.SegmentCount
		s.Transcribed += f.TranscribedCount
		s.Rejected += f.RejectedCount
		s.AudioDurationSec += f.DurationSec
	}
	return s
}

// logSummary logs the batch totals and, when the status store can be
// queried, the dataset-wide totals accumulated across runs.
func (p *Pipeline) logSummary(ctx context.Context, result *BatchResult) {
	s := result.Stats()
	p.logger.Info("batch finished",
		slog.String("run_id", result.RunID),
		slog.Int("files", s.Files),
		slog.Int("failed", s.Failed),
		slog.Int("segments", s.Segments),
		slog.Int("transcribed", s.Transcribed),
		slog.Int("rejected", s.Rejected),
		slog.String("audio_duration", formatDuration(s.AudioDurationSec)),
	)

	summary, err := p.deps.Statuses.Summarize(ctx)
	if err != nil {
		p.logger.Warn("dataset summary unavailable", slog.String("error", err.Error()))
		return
	}
	p.logger.Info("dataset totals",
		slog.Int("files", summary.Total),
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("segments", summary.TotalSegments),
		slog.Int("transcribed", summary.TotalTranscribed),
		slog.String("audio_duration", formatDuration(summary.TotalDurationSec)),
	)
}

// formatDuration renders seconds as a rounded duration string for log
// output.
func formatDuration(sec float64) string {
	return (time.Duration(sec * float64(time.Second))).Round(time.Second).String()
}
