// Package storage lays out and persists the artifacts of a pipeline run:
// result folders with split chunks, silence-point reports, raw API
// responses, compressed archives and an optional S3 upload of the final
// archive.
package storage

import "context"

// ResultStore defines where run artifacts live and how completed results
// are archived. Implementations must create directories lazily so a batch
// can start against an empty data folder.
type ResultStore interface {
	// ResultDir returns (and creates) the result directory for an input.
	ResultDir(base string) (string, error)

	// SplitDir returns (and creates) the chunk directory for an input.
	SplitDir(base string) (string, error)

	// ResponseDir returns (and creates) the directory raw transcription
	// responses are saved under for an input.
	ResponseDir(base string) (string, error)

	// TranscriptCSVPath returns the transcripts CSV path for an input.
	TranscriptCSVPath(base string) string

	// SilenceReportPath returns the silence-points JSON path for an input.
	SilenceReportPath(base string) string

	// Compress zips the input's result directory and returns the archive
	// path.
	Compress(ctx context.Context, base string) (string, error)

	// UploadArchive uploads a compressed archive and returns its URL.
	// Returns ErrS3NotConfigured when no object storage is configured.
	UploadArchive(ctx context.Context, archivePath string) (string, error)
}
