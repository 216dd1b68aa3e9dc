// Package pipeline orchestrates end-to-end processing of source audio
// files: silence detection, segment planning, chunk extraction,
// transcription with acceptance filtering, WAV conversion and archiving
// of the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cerdastangkas/audio-result-transcriber/internal/audio"
	"github.com/cerdastangkas/audio-result-transcriber/internal/report"
	"github.com/cerdastangkas/audio-result-transcriber/internal/segment"
	"github.com/cerdastangkas/audio-result-transcriber/internal/status"
	"github.com/cerdastangkas/audio-result-transcriber/internal/storage"
	"github.com/cerdastangkas/audio-result-transcriber/internal/transcribe"
)

// Static errors for pipeline validation.
var (
	// ErrNilDependency is returned when a required dependency is missing.
	ErrNilDependency = errors.New("pipeline: nil dependency")
)

// sourceExtensions lists the input formats picked up from the source
// directory.
var sourceExtensions = map[string]bool{
	".ogg": true,
	".mp3": true,
	".m4a": true,
	".wav": true,
	".mp4": true,
}

// Deps holds the collaborators a Pipeline needs. Transcriber may be nil
// to run in split-only mode and Volumes may be nil to disable the
// per-segment loudness check; everything else is required.
type Deps struct {
	Prober       audio.Prober
	Detector     audio.Detector
	Materializer audio.Materializer
	Converter    audio.Converter
	Volumes      audio.VolumeProber
	Transcriber  transcribe.Transcriber
	Store        storage.ResultStore
	Statuses     status.Store
}

// Pipeline drives the processing of source audio files into transcribed,
// duration-bounded chunks.
type Pipeline struct {
	deps        Deps
	segCfg      segment.Config
	extractOpts audio.ExtractOpts
	logger      *slog.Logger

	// expectedLanguage is the language transcriptions must come back in.
	expectedLanguage string
	// maxConcurrentChunks limits parallel extraction and transcription.
	maxConcurrentChunks int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExpectedLanguage sets the language accepted transcriptions must be
// detected as. Empty disables the language check.
func WithExpectedLanguage(lang string) Option {
	return func(p *Pipeline) { p.expectedLanguage = strings.ToLower(lang) }
}

// WithMaxConcurrentChunks limits how many chunks are extracted or
// transcribed in parallel.
func WithMaxConcurrentChunks(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxConcurrentChunks = n
		}
	}
}

// WithExtractOpts overrides the chunk extraction options.
func WithExtractOpts(opts audio.ExtractOpts) Option {
	return func(p *Pipeline) { p.extractOpts = opts }
}

// New creates a Pipeline. Transcriber may be nil for split-only runs.
func New(deps Deps, segCfg segment.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if deps.Prober == nil || deps.Detector == nil || deps.Materializer == nil ||
		deps.Converter == nil || deps.Store == nil || deps.Statuses == nil {
		return nil, ErrNilDependency
	}
	if err := segCfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		deps:                deps,
		segCfg:              segCfg,
		extractOpts:         audio.DefaultExtractOpts(),
		logger:              logger,
		maxConcurrentChunks: 3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FileResult summarizes the processing of one input file.
type FileResult struct {
	BaseFilename     string
	RunID            string
	DurationSec      float64
	SegmentCount     int
	TranscribedCount int
	RejectedCount    int
	ArchivePath      string
	ArchiveURL       string
}

// ProcessFile runs the full pipeline for a single input file: probe,
// detect silences, plan segments, extract chunks, transcribe and filter,
// convert survivors to WAV and compress the result folder. The status
// store is updated as the file moves through states.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, runID string) (*FileResult, error) {
	base := storage.BaseFilename(inputPath)
	log := p.logger.With(slog.String("file", base), slog.String("run_id", runID))

	rec, err := p.markRunning(ctx, base, runID)
	if err != nil {
		return nil, err
	}

	res, err := p.processFile(ctx, inputPath, base, runID, log)
	if err != nil {
		p.markFailed(ctx, rec, err, log)
		return nil, err
	}

	rec.DurationSec = res.DurationSec
	rec.SegmentCount = res.SegmentCount
	rec.TranscribedCount = res.TranscribedCount
	rec.Error = ""
	if terr := rec.Transition(status.StateCompleted); terr != nil {
		return nil, terr
	}
	if uerr := p.deps.Statuses.Upsert(ctx, rec); uerr != nil {
		return nil, uerr
	}

	log.Info("file completed",
		slog.Float64("duration_sec", res.DurationSec),
		slog.Int("segments", res.SegmentCount),
		slog.Int("transcribed", res.TranscribedCount),
		slog.Int("rejected", res.RejectedCount),
	)
	return res, nil
}

func (p *Pipeline) processFile(ctx context.Context, inputPath, base, runID string, log *slog.Logger) (*FileResult, error) {
	totalMs, err := p.deps.Prober.DurationMs(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", inputPath, err)
	}

	silences, err := p.deps.Detector.DetectSilences(ctx, inputPath, p.segCfg)
	if err != nil {
		return nil, fmt.Errorf("detect silences in %s: %w", inputPath, err)
	}

	segments, err := segment.Plan(totalMs, silences, p.segCfg)
	if err != nil {
		return nil, fmt.Errorf("plan segments for %s: %w", inputPath, err)
	}
	log.Info("segments planned",
		slog.Int64("total_ms", totalMs),
		slog.Int("silences", len(silences)),
		slog.Int("segments", len(segments)),
	)

	chunks, err := p.materializeChunks(ctx, inputPath, base, segments, log)
	if err != nil {
		return nil, err
	}

	csv := report.NewTranscriptCSV(p.deps.Store.TranscriptCSVPath(base))
	records := make([]report.Record, len(chunks))
	for i, c := range chunks {
		records[i] = report.Record{
			AudioFile:   filepath.Base(c.path),
			StartSec:    float64(c.seg.StartMs) / 1000,
			EndSec:      float64(c.seg.EndMs) / 1000,
			DurationSec: float64(c.seg.EndMs-c.seg.StartMs) / 1000,
		}
	}
	if err := csv.Write(records); err != nil {
		return nil, err
	}

	silenceReport := report.NewSilenceReport(filepath.Base(inputPath), runID, totalMs, p.segCfg, silences, segments)
	if err := silenceReport.Save(p.deps.Store.SilenceReportPath(base)); err != nil {
		return nil, err
	}

	transcribed, rejected := 0, 0
	if p.deps.Transcriber != nil {
		transcribed, rejected, err = p.transcribeChunks(ctx, base, chunkPaths(chunks), csv, log)
		if err != nil {
			return nil, err
		}
	}

	archivePath, err := p.deps.Store.Compress(ctx, base)
	if err != nil {
		return nil, err
	}

	archiveURL := ""
	url, err := p.deps.Store.UploadArchive(ctx, archivePath)
	switch {
	case errors.Is(err, storage.ErrS3NotConfigured):
		// Local-only run, archive stays on disk.
	case err != nil:
		return nil, err
	default:
		archiveURL = url
		log.Info("archive uploaded", slog.String("url", url))
	}

	return &FileResult{
		BaseFilename:     base,
		RunID:            runID,
		DurationSec:      float64(totalMs) / 1000,
		SegmentCount:     len(segments),
		TranscribedCount: transcribed,
		RejectedCount:    rejected,
		ArchivePath:      archivePath,
		ArchiveURL:       archiveURL,
	}, nil
}

// chunk pairs a planned segment with the file it was extracted to.
type chunk struct {
	seg  segment.Segment
	path string
}

func chunkPaths(chunks []chunk) []string {
	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.path
	}
	return paths
}

// materializeChunks extracts the planned segments in parallel, bounded by
// maxConcurrentChunks. Chunk files are named <base>_NNN.ogg in segment
// order. When a volume prober is configured, segments whose mean volume
// sits at or below the silence threshold are skipped entirely; the index
// of a skipped segment is not reused.
func (p *Pipeline) materializeChunks(ctx context.Context, inputPath, base string, segments []segment.Segment, log *slog.Logger) ([]chunk, error) {
	splitDir, err := p.deps.Store.SplitDir(base)
	if err != nil {
		return nil, err
	}

	all := make([]chunk, len(segments))
	skipped := make([]bool, len(segments))
	for i, seg := range segments {
		all[i] = chunk{
			seg:  seg,
			path: filepath.Join(splitDir, fmt.Sprintf("%s_%03d.ogg", base, i)),
		}
	}

	err = p.forEachChunk(ctx, len(all), func(ctx context.Context, i int) error {
		seg := all[i].seg
		if p.deps.Volumes != nil {
			mean, verr := p.deps.Volumes.MeanVolumeDB(ctx, inputPath, seg.StartMs, seg.DurationMs())
			if verr == nil && mean <= p.segCfg.SilenceThreshDB {
				log.Info("segment skipped, no audible content",
					slog.Int("index", i),
					slog.Float64("mean_volume_db", mean),
				)
				skipped[i] = true
				return nil
			}
		}
		if err := p.deps.Materializer.Materialize(ctx, inputPath, seg, all[i].path, p.extractOpts); err != nil {
			return fmt.Errorf("extract chunk %d: %w", i, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	chunks := make([]chunk, 0, len(all))
	for i, c := range all {
		if !skipped[i] {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

// transcribeOutcome is the per-chunk result of the parallel transcription
// phase, applied to the CSV serially afterwards.
type transcribeOutcome struct {
	path     string
	text     string
	accepted bool
	reason   string
}

// transcribeChunks sends chunks to the transcription API in parallel,
// filters the results and applies the surviving texts to the CSV. Rejected
// chunks are deleted along with their CSV rows. Survivors are converted to
// 16kHz mono WAV and the CSV rows renamed to match.
func (p *Pipeline) transcribeChunks(ctx context.Context, base string, paths []string, csv *report.TranscriptCSV, log *slog.Logger) (accepted, rejected int, err error) {
	responseDir, err := p.deps.Store.ResponseDir(base)
	if err != nil {
		return 0, 0, err
	}

	outcomes := make([]transcribeOutcome, len(paths))
	err = p.forEachChunk(ctx, len(paths), func(ctx context.Context, i int) error {
		res, terr := p.deps.Transcriber.Transcribe(ctx, paths[i])
		if terr != nil {
			return fmt.Errorf("transcribe %s: %w", filepath.Base(paths[i]), terr)
		}

		if len(res.Raw) > 0 {
			respPath := filepath.Join(responseDir, storage.BaseFilename(paths[i])+".json")
			if werr := os.WriteFile(respPath, res.Raw, 0600); werr != nil {
				return fmt.Errorf("save response for %s: %w", filepath.Base(paths[i]), werr)
			}
		}

		ok, reason := transcribe.Accept(res, p.expectedLanguage)
		outcomes[i] = transcribeOutcome{
			path:     paths[i],
			text:     res.Text,
			accepted: ok,
			reason:   reason,
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	// CSV mutations rewrite the whole file, so apply them serially.
	for _, out := range outcomes {
		name := filepath.Base(out.path)
		if !out.accepted {
			log.Info("chunk rejected",
				slog.String("chunk", name),
				slog.String("reason", out.reason),
			)
			if err := csv.Remove(name); err != nil {
				return 0, 0, err
			}
			if err := os.Remove(out.path); err != nil && !os.IsNotExist(err) {
				return 0, 0, fmt.Errorf("remove rejected chunk %s: %w", name, err)
			}
			rejected++
			continue
		}
		if err := csv.SetText(name, out.text); err != nil {
			return 0, 0, err
		}
		accepted++
	}

	if err := p.convertSurvivors(ctx, outcomes); err != nil {
		return 0, 0, err
	}
	if err := csv.ReplaceExtension(".ogg", ".wav"); err != nil {
		return 0, 0, err
	}

	return accepted, rejected, nil
}

// convertSurvivors transcodes accepted chunks to WAV and removes the OGG
// originals.
func (p *Pipeline) convertSurvivors(ctx context.Context, outcomes []transcribeOutcome) error {
	survivors := make([]string, 0, len(outcomes))
	for _, out := range outcomes {
		if out.accepted {
			survivors = append(survivors, out.path)
		}
	}

	return p.forEachChunk(ctx, len(survivors), func(ctx context.Context, i int) error {
		src := survivors[i]
		dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".wav"
		if err := p.deps.Converter.ConvertToWAV(ctx, src, dst); err != nil {
			return fmt.Errorf("convert %s: %w", filepath.Base(src), err)
		}
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", filepath.Base(src), err)
		}
		return nil
	})
}

// forEachChunk runs fn for each index in parallel, bounded by
// maxConcurrentChunks. The first error cancels the remaining work.
func (p *Pipeline) forEachChunk(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, p.maxConcurrentChunks)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				if err := fn(ctx, i); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
				}
			}(i)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// TranscribeExisting transcribes chunks split in an earlier run. It reads
// the transcripts CSV for the input, sends every untranscribed OGG chunk
// through the transcription and acceptance phase and recompresses the
// result folder.
func (p *Pipeline) TranscribeExisting(ctx context.Context, base string) (accepted, rejected int, err error) {
	if p.deps.Transcriber == nil {
		return 0, 0, fmt.Errorf("%w: transcriber", ErrNilDependency)
	}
	log := p.logger.With(slog.String("file", base))

	splitDir, err := p.deps.Store.SplitDir(base)
	if err != nil {
		return 0, 0, err
	}
	csv := report.NewTranscriptCSV(p.deps.Store.TranscriptCSVPath(base))
	records, err := csv.Read()
	if err != nil {
		return 0, 0, err
	}

	var paths []string
	for _, rec := range records {
		if rec.Text != "" || !strings.EqualFold(filepath.Ext(rec.AudioFile), ".ogg") {
			continue
		}
		paths = append(paths, filepath.Join(splitDir, rec.AudioFile))
	}
	if len(paths) == 0 {
		log.Info("no untranscribed chunks")
		return 0, 0, nil
	}

	accepted, rejected, err = p.transcribeChunks(ctx, base, paths, csv, log)
	if err != nil {
		return 0, 0, err
	}
	if _, err := p.deps.Store.Compress(ctx, base); err != nil {
		return 0, 0, err
	}
	log.Info("transcription finished",
		slog.Int("transcribed", accepted),
		slog.Int("rejected", rejected),
	)
	return accepted, rejected, nil
}

// markRunning loads or creates the status record for an input and moves
// it to RUNNING.
func (p *Pipeline) markRunning(ctx context.Context, base, runID string) (*status.Record, error) {
	rec, err := p.deps.Statuses.Get(ctx, base)
	switch {
	case errors.Is(err, status.ErrNotFound):
		rec = &status.Record{BaseFilename: base, State: status.StatePending}
	case err != nil:
		return nil, err
	}
	rec.RunID = runID
	if err := rec.Transition(status.StateRunning); err != nil {
		return nil, err
	}
	if err := p.deps.Statuses.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// markFailed records a processing failure. Status store errors are logged
// rather than returned so the original failure is what surfaces.
func (p *Pipeline) markFailed(ctx context.Context, rec *status.Record, cause error, log *slog.Logger) {
	rec.Error = cause.Error()
	if err := rec.Transition(status.StateFailed); err != nil {
		log.Error("status transition failed", slog.String("error", err.Error()))
		return
	}
	if err := p.deps.Statuses.Upsert(ctx, rec); err != nil {
		log.Error("status update failed", slog.String("error", err.Error()))
	}
}

// BatchResult summarizes a directory run.
type BatchResult struct {
	RunID     string
	Processed []*FileResult
	Failed    map[string]error
}

// ProcessDirectory processes every supported audio file in sourceDir in
// name order. Failures are isolated per file: a failed input is recorded
// and the batch moves on. Successfully processed source files are moved
// into archiveDir when it is non-empty.
func (p *Pipeline) ProcessDirectory(ctx context.Context, sourceDir, archiveDir string) (*BatchResult, error) {
	files, err := listSourceFiles(sourceDir)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	result := &BatchResult{
		RunID:  runID,
		Failed: map[string]error{},
	}
	if len(files) == 0 {
		p.logger.Warn("no source files found", slog.String("dir", sourceDir))
		return result, nil
	}
	p.logger.Info("batch started",
		slog.String("run_id", runID),
		slog.String("source_dir", sourceDir),
		slog.Int("files", len(files)),
	)

	for _, f := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		res, err := p.ProcessFile(ctx, f, runID)
		if err != nil {
			p.logger.Error("file failed",
				slog.String("file", filepath.Base(f)),
				slog.String("error", err.Error()),
			)
			result.Failed[storage.BaseFilename(f)] = err
			continue
		}
		result.Processed = append(result.Processed, res)

		if archiveDir != "" {
			if err := storage.ArchiveSource(f, archiveDir); err != nil {
				return result, err
			}
		}
	}

	p.logSummary(ctx, result)
	return result, nil
}

// listSourceFiles returns the supported audio files in dir, sorted by
// name.
func listSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read source directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
