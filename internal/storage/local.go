package storage

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrS3NotConfigured is returned when archive upload is attempted without
// object storage configured.
var ErrS3NotConfigured = errors.New("storage: S3 is not configured")

// LocalStore implements ResultStore on the local filesystem. The layout
// under the data directory mirrors what downstream tooling expects:
//
//	result/<base>/                 per-input result folder
//	result/<base>/split/           extracted chunks
//	result/<base>/<base>_transcripts.csv
//	silence_points/<base>_silence_points.json
//	responses/<base>/              raw transcription API responses
//	compressed/<base>.zip          archived results
type LocalStore struct {
	dataDir string
}

// NewLocalStore creates a LocalStore rooted at dataDir. If dataDir is
// empty a directory under os.TempDir() is used. The root is created if it
// does not exist.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "audio-result-transcriber")
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("storage: create data directory: %w", err)
	}
	return &LocalStore{dataDir: dataDir}, nil
}

// Compile-time check that LocalStore implements ResultStore.
var _ ResultStore = (*LocalStore)(nil)

// DataDir returns the data root.
func (s *LocalStore) DataDir() string {
	return s.dataDir
}

// ResultDir returns (and creates) the result directory for an input.
func (s *LocalStore) ResultDir(base string) (string, error) {
	return s.ensureDir(filepath.Join(s.dataDir, "result", base))
}

// SplitDir returns (and creates) the chunk directory for an input.
func (s *LocalStore) SplitDir(base string) (string, error) {
	return s.ensureDir(filepath.Join(s.dataDir, "result", base, "split"))
}

// ResponseDir returns (and creates) the raw-response directory for an
// input.
func (s *LocalStore) ResponseDir(base string) (string, error) {
	return s.ensureDir(filepath.Join(s.dataDir, "responses", base))
}

// TranscriptCSVPath returns the transcripts CSV path for an input.
func (s *LocalStore) TranscriptCSVPath(base string) string {
	return filepath.Join(s.dataDir, "result", base, base+"_transcripts.csv")
}

// SilenceReportPath returns the silence-points JSON path for an input.
func (s *LocalStore) SilenceReportPath(base string) string {
	return filepath.Join(s.dataDir, "silence_points", base+"_silence_points.json")
}

// Compress zips the input's result directory into compressed/<base>.zip
// and returns the archive path. An existing archive is overwritten so the
// operation can be retried.
func (s *LocalStore) Compress(ctx context.Context, base string) (string, error) {
	resultDir := filepath.Join(s.dataDir, "result", base)
	if _, err := os.Stat(resultDir); err != nil {
		return "", fmt.Errorf("storage: result directory: %w", err)
	}

	archiveDir, err := s.ensureDir(filepath.Join(s.dataDir, "compressed"))
	if err != nil {
		return "", err
	}
	archivePath := filepath.Join(archiveDir, base+".zip")

	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("storage: create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.Walk(resultDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(resultDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(filepath.Join(base, rel)))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		_ = zw.Close()
		_ = os.Remove(archivePath)
		return "", fmt.Errorf("storage: compress result: %w", err)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close archive: %w", err)
	}
	return archivePath, nil
}

// UploadArchive is not supported by LocalStore and returns
// ErrS3NotConfigured.
func (s *LocalStore) UploadArchive(_ context.Context, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

// ArchiveSource moves a processed input file into the archive directory,
// creating it if needed.
func ArchiveSource(srcPath, archiveDir string) error {
	if err := os.MkdirAll(archiveDir, 0750); err != nil {
		return fmt.Errorf("storage: create archive directory: %w", err)
	}
	dst := filepath.Join(archiveDir, filepath.Base(srcPath))
	if err := os.Rename(srcPath, dst); err != nil {
		return fmt.Errorf("storage: archive source file: %w", err)
	}
	return nil
}

// BaseFilename strips the directory and extension from an input path.
func BaseFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *LocalStore) ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("storage: create directory %s: %w", dir, err)
	}
	return dir, nil
}
