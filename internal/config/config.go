// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/cerdastangkas/audio-result-transcriber/internal/segment"
)

// Static errors for configuration validation.
var (
	// ErrAPIKeyRequired is returned when OPENAI_API_KEY is not set and
	// transcription is enabled.
	ErrAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Directory settings
	DataDir   string `env:"DATA_DIR, default=data" json:"data_dir"`
	SourceDir string `env:"SOURCE_DIR, default=data/source" json:"source_dir"`

	// Tool paths
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Transcription settings
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" json:"-"` // Masked in JSON
	TranscribeBaseURL string `env:"TRANSCRIBE_BASE_URL, default=https://api.openai.com/v1" json:"transcribe_base_url"`
	TranscribeModel   string `env:"TRANSCRIBE_MODEL, default=whisper-1" json:"transcribe_model"`
	ExpectedLanguage  string `env:"EXPECTED_LANGUAGE, default=indonesian" json:"expected_language"`

	// Segmentation settings
	MinSilenceLenMs int64   `env:"MIN_SILENCE_LEN_MS, default=700" json:"min_silence_len_ms"`
	SilenceThreshDB float64 `env:"SILENCE_THRESH_DB, default=-35" json:"silence_thresh_db"`
	MinDurationMs   int64   `env:"MIN_DURATION_MS, default=2000" json:"min_duration_ms"`
	MaxDurationMs   int64   `env:"MAX_DURATION_MS, default=15000" json:"max_duration_ms"`

	// Processing settings
	MaxConcurrentChunks int `env:"MAX_CONCURRENT_CHUNKS, default=3" json:"max_concurrent_chunks"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Segmentation builds the segmentation config from the loaded settings.
func (c *Config) Segmentation() (segment.Config, error) {
	return segment.NewConfig(c.MinSilenceLenMs, c.SilenceThreshDB, c.MinDurationMs, c.MaxDurationMs)
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if _, err := cfg.Segmentation(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, SourceDir: %s, TranscribeModel: %s, ExpectedLanguage: %s, MinSilenceLenMs: %d, SilenceThreshDB: %.1f, MinDurationMs: %d, MaxDurationMs: %d, MaxConcurrentChunks: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.DataDir,
		c.SourceDir,
		c.TranscribeModel,
		c.ExpectedLanguage,
		c.MinSilenceLenMs,
		c.SilenceThreshDB,
		c.MinDurationMs,
		c.MaxDurationMs,
		c.MaxConcurrentChunks,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
