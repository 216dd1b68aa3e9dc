package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "data/source", cfg.SourceDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "https://api.openai.com/v1", cfg.TranscribeBaseURL)
	assert.Equal(t, "whisper-1", cfg.TranscribeModel)
	assert.Equal(t, "indonesian", cfg.ExpectedLanguage)
	assert.Equal(t, int64(700), cfg.MinSilenceLenMs)
	assert.Equal(t, -35.0, cfg.SilenceThreshDB)
	assert.Equal(t, int64(2000), cfg.MinDurationMs)
	assert.Equal(t, int64(15000), cfg.MaxDurationMs)
	assert.Equal(t, 3, cfg.MaxConcurrentChunks)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("DATA_DIR", "/custom/data")
	t.Setenv("SOURCE_DIR", "/custom/source")
	t.Setenv("TRANSCRIBE_BASE_URL", "https://api.deepinfra.com/v1/openai")
	t.Setenv("TRANSCRIBE_MODEL", "openai/whisper-large-v3")
	t.Setenv("EXPECTED_LANGUAGE", "english")
	t.Setenv("MIN_SILENCE_LEN_MS", "500")
	t.Setenv("SILENCE_THRESH_DB", "-40")
	t.Setenv("MIN_DURATION_MS", "3000")
	t.Setenv("MAX_DURATION_MS", "20000")
	t.Setenv("MAX_CONCURRENT_CHUNKS", "5")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "ap-southeast-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, "/custom/source", cfg.SourceDir)
	assert.Equal(t, "https://api.deepinfra.com/v1/openai", cfg.TranscribeBaseURL)
	assert.Equal(t, "openai/whisper-large-v3", cfg.TranscribeModel)
	assert.Equal(t, "english", cfg.ExpectedLanguage)
	assert.Equal(t, int64(500), cfg.MinSilenceLenMs)
	assert.Equal(t, -40.0, cfg.SilenceThreshDB)
	assert.Equal(t, int64(3000), cfg.MinDurationMs)
	assert.Equal(t, int64(20000), cfg.MaxDurationMs)
	assert.Equal(t, 5, cfg.MaxConcurrentChunks)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "ap-southeast-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_CHUNKS", "not-a-number")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidSegmentation(t *testing.T) {
	t.Setenv("MIN_DURATION_MS", "20000")
	t.Setenv("MAX_DURATION_MS", "10000")

	_, err := Load()
	require.Error(t, err)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_Segmentation(t *testing.T) {
	cfg := &Config{
		MinSilenceLenMs: 700,
		SilenceThreshDB: -35,
		MinDurationMs:   2000,
		MaxDurationMs:   15000,
	}

	segCfg, err := cfg.Segmentation()
	require.NoError(t, err)
	assert.Equal(t, int64(700), segCfg.MinSilenceLenMs)
	assert.Equal(t, int64(15000), segCfg.MaxDurationMs)
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		DataDir:            "/data",
		SourceDir:          "/data/source",
		OpenAIAPIKey:       "secret-key",
		TranscribeModel:    "whisper-1",
		ExpectedLanguage:   "indonesian",
		AWSSecretAccessKey: "aws-secret",
		S3Bucket:           "bucket",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "/data")
	assert.Contains(t, str, "whisper-1")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "aws-secret")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
