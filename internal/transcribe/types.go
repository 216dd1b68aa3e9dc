// Package transcribe provides an HTTP client for hosted Whisper-compatible
// transcription APIs (OpenAI and DeepInfra expose the same multipart
// endpoint), plus the acceptance rules applied to what they return.
package transcribe

import (
	"context"
	"encoding/json"
)

// Result is the outcome of transcribing a single audio chunk.
type Result struct {
	// Text is the transcribed text.
	Text string
	// Language is the language the API detected, lowercase.
	Language string
	// DurationSec is the audio duration as reported by the API.
	DurationSec float64
	// Raw is the full verbose JSON response, persisted alongside the
	// transcripts for auditing.
	Raw json.RawMessage
}

// Transcriber defines the interface for transcribing audio chunks.
type Transcriber interface {
	// Transcribe uploads the file and returns the transcription result.
	Transcribe(ctx context.Context, filePath string) (Result, error)
}

// verboseResponse mirrors the verbose_json response body of the
// transcription endpoint.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}
