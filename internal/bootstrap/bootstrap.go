// Package bootstrap provides dependency initialization for the
// transcription pipeline.
package bootstrap

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cerdastangkas/audio-result-transcriber/internal/audio"
	"github.com/cerdastangkas/audio-result-transcriber/internal/config"
	"github.com/cerdastangkas/audio-result-transcriber/internal/pipeline"
	"github.com/cerdastangkas/audio-result-transcriber/internal/status"
	"github.com/cerdastangkas/audio-result-transcriber/internal/storage"
	"github.com/cerdastangkas/audio-result-transcriber/internal/transcribe"
)

// Dependencies holds all initialized dependencies for the application.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Statuses *status.SQLiteStore
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	return d.Statuses.Close()
}

// NewDependencies creates and initializes all dependencies for the
// application. When transcription is disabled the pipeline runs in
// split-only mode and no API key is required.
func NewDependencies(cfg *config.Config, logger *slog.Logger, transcriptionEnabled bool) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	statuses, err := status.NewSQLiteStore(filepath.Join(cfg.DataDir, "processing_status.db"))
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	var transcriber transcribe.Transcriber
	if transcriptionEnabled {
		if cfg.OpenAIAPIKey == "" {
			statuses.Close()
			return nil, config.ErrAPIKeyRequired
		}
		client, err := transcribe.NewClient(
			transcribe.WithAPIKey(cfg.OpenAIAPIKey),
			transcribe.WithBaseURL(cfg.TranscribeBaseURL),
			transcribe.WithModel(cfg.TranscribeModel),
		)
		if err != nil {
			statuses.Close()
			return nil, fmt.Errorf("create transcription client: %w", err)
		}
		transcriber = client
	}

	ffmpeg := audio.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath)

	segCfg, err := cfg.Segmentation()
	if err != nil {
		statuses.Close()
		return nil, err
	}

	p, err := pipeline.New(
		pipeline.Deps{
			Prober:       ffmpeg,
			Detector:     ffmpeg,
			Materializer: ffmpeg,
			Converter:    ffmpeg,
			Volumes:      ffmpeg,
			Transcriber:  transcriber,
			Store:        store,
			Statuses:     statuses,
		},
		segCfg,
		logger,
		pipeline.WithExpectedLanguage(cfg.ExpectedLanguage),
		pipeline.WithMaxConcurrentChunks(cfg.MaxConcurrentChunks),
	)
	if err != nil {
		statuses.Close()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	return &Dependencies{
		Pipeline: p,
		Statuses: statuses,
	}, nil
}

// initStorage creates the appropriate storage backend based on
// configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.ResultStore, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Store(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, nil
}
