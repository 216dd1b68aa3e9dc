// Package report persists the per-input artifacts of a pipeline run: the
// transcripts CSV consumed by dataset tooling and the silence-points JSON
// record of what the planner decided.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrRecordNotFound is returned when a CSV row cannot be found for an
// audio file.
var ErrRecordNotFound = errors.New("report: record not found")

// columns is the transcripts CSV header. The text column is filled in by
// transcription after the rows are first written.
var columns = []string{"audio_file", "start_time_seconds", "end_time_seconds", "duration_seconds", "text"}

// Record is one row of the transcripts CSV.
type Record struct {
	AudioFile   string
	StartSec    float64
	EndSec      float64
	DurationSec float64
	Text        string
}

// TranscriptCSV reads and rewrites a transcripts CSV file. Rows are never
// mutated in place; every change rewrites the whole file, which keeps the
// artifact consistent even when a run is interrupted between steps.
type TranscriptCSV struct {
	path string
}

// NewTranscriptCSV creates a TranscriptCSV for the given file path.
func NewTranscriptCSV(path string) *TranscriptCSV {
	return &TranscriptCSV{path: path}
}

// Path returns the CSV file path.
func (t *TranscriptCSV) Path() string {
	return t.path
}

// Write replaces the file with a header and the given records.
func (t *TranscriptCSV) Write(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0750); err != nil {
		return fmt.Errorf("report: create result directory: %w", err)
	}

	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("report: create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.AudioFile,
			formatSeconds(r.StartSec),
			formatSeconds(r.EndSec),
			formatSeconds(r.DurationSec),
			r.Text,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}
	return f.Close()
}

// Read parses the file back into records.
func (t *TranscriptCSV) Read() ([]Record, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("report: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip header
		if len(row) < 4 {
			continue
		}
		rec := Record{AudioFile: row[0]}
		rec.StartSec, _ = strconv.ParseFloat(row[1], 64)
		rec.EndSec, _ = strconv.ParseFloat(row[2], 64)
		rec.DurationSec, _ = strconv.ParseFloat(row[3], 64)
		if len(row) > 4 {
			rec.Text = row[4]
		}
		records = append(records, rec)
	}
	return records, nil
}

// SetText fills in the text column for the row matching the audio file.
// Rows are matched by base name without extension, so a row written for
// an OGG chunk still matches after conversion to WAV.
func (t *TranscriptCSV) SetText(audioFile, text string) error {
	records, err := t.Read()
	if err != nil {
		return err
	}

	key := baseKey(audioFile)
	found := false
	for i := range records {
		if baseKey(records[i].AudioFile) == key {
			records[i].Text = text
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, audioFile)
	}
	return t.Write(records)
}

// Remove drops the row matching the audio file. Removing a row that does
// not exist is not an error; a rejected chunk may already be gone.
func (t *TranscriptCSV) Remove(audioFile string) error {
	records, err := t.Read()
	if err != nil {
		return err
	}

	key := baseKey(audioFile)
	kept := records[:0]
	for _, r := range records {
		if baseKey(r.AudioFile) != key {
			kept = append(kept, r)
		}
	}
	return t.Write(kept)
}

// ReplaceExtension rewrites the audio_file column, swapping one file
// extension for another. Used after chunks are converted from OGG to WAV.
func (t *TranscriptCSV) ReplaceExtension(oldExt, newExt string) error {
	records, err := t.Read()
	if err != nil {
		return err
	}
	for i := range records {
		if strings.HasSuffix(records[i].AudioFile, oldExt) {
			records[i].AudioFile = strings.TrimSuffix(records[i].AudioFile, oldExt) + newExt
		}
	}
	return t.Write(records)
}

// baseKey normalizes an audio path to its base name without extension.
func baseKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// formatSeconds renders a seconds value with millisecond precision.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
