// Package main provides the entry point for the audio transcription
// pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cerdastangkas/audio-result-transcriber/internal/bootstrap"
	"github.com/cerdastangkas/audio-result-transcriber/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		sourceDir      = flag.String("source", "", "source directory with audio files (default: SOURCE_DIR)")
		archiveDir     = flag.String("archive", "", "directory processed source files are moved into (default: <data>/source_done)")
		splitOnly      = flag.Bool("split-only", false, "split audio into chunks without transcribing")
		transcribeOnly = flag.String("transcribe-only", "", "transcribe the existing chunks of a previously split input (base filename)")
	)
	flag.Parse()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if *sourceDir == "" {
		*sourceDir = cfg.SourceDir
	}
	if *archiveDir == "" {
		*archiveDir = filepath.Join(cfg.DataDir, "source_done")
	}

	logger.Info("starting audio transcription pipeline",
		slog.String("source_dir", *sourceDir),
		slog.String("data_dir", cfg.DataDir),
		slog.Int("max_concurrent_chunks", cfg.MaxConcurrentChunks),
		slog.Bool("split_only", *splitOnly),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger, !*splitOnly)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *transcribeOnly != "" {
		accepted, rejected, err := deps.Pipeline.TranscribeExisting(ctx, *transcribeOnly)
		if err != nil {
			return fmt.Errorf("transcribe %s: %w", *transcribeOnly, err)
		}
		logger.Info("done",
			slog.Int("transcribed", accepted),
			slog.Int("rejected", rejected),
		)
		return nil
	}

	result, err := deps.Pipeline.ProcessDirectory(ctx, *sourceDir, *archiveDir)
	if err != nil {
		return fmt.Errorf("process %s: %w", *sourceDir, err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(result.Failed), len(result.Failed)+len(result.Processed))
	}
	return nil
}
