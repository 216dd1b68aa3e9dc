package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Static errors for transcription client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("transcribe: API key is not set")
	// ErrRateLimited is returned when the server keeps answering 429.
	ErrRateLimited = errors.New("transcribe: rate limited")
	// ErrServerError is returned when the server keeps answering 5xx.
	ErrServerError = errors.New("transcribe: server error")
	// ErrRequestFailed is returned for any other non-2xx response.
	ErrRequestFailed = errors.New("transcribe: request failed")
)

// HTTPClient is the HTTP implementation of the Transcriber interface.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom API base URL, e.g. the DeepInfra
// OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the transcription model name.
func WithModel(model string) ClientOption {
	return func(c *HTTPClient) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets the maximum number of retries for transient
// failures (429 and 5xx responses).
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries. Each
// retry doubles it.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.baseBackoff = d
	}
}

// NewClient creates a new transcription client. The API key can be set
// via WithAPIKey; if absent it is read from OPENAI_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:     "https://api.openai.com/v1",
		model:       "whisper-1",
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Compile-time check that HTTPClient implements Transcriber.
var _ Transcriber = (*HTTPClient)(nil)

// Transcribe uploads the file as multipart form data and returns the
// parsed verbose response. Transient failures are retried with
// exponential backoff; the multipart body is rebuilt from the file on
// each attempt.
func (c *HTTPClient) Transcribe(ctx context.Context, filePath string) (Result, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("transcribe: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		res, retryable, err := c.doRequest(ctx, filePath)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable {
			return Result{}, err
		}
	}

	return Result{}, fmt.Errorf("%w after %d retries", lastErr, c.maxRetries)
}

// doRequest performs a single upload attempt. The second return value
// reports whether the failure is worth retrying.
func (c *HTTPClient) doRequest(ctx context.Context, filePath string) (Result, bool, error) {
	body, contentType, err := c.buildForm(filePath)
	if err != nil {
		return Result{}, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return Result{}, false, fmt.Errorf("transcribe: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, true, fmt.Errorf("transcribe: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, true, fmt.Errorf("transcribe: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var vr verboseResponse
		if err := json.Unmarshal(respBody, &vr); err != nil {
			return Result{}, false, fmt.Errorf("transcribe: decode response: %w", err)
		}
		return Result{
			Text:        vr.Text,
			Language:    strings.ToLower(vr.Language),
			DurationSec: vr.Duration,
			Raw:         json.RawMessage(respBody),
		}, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, true, fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(respBody)))

	case resp.StatusCode >= 500:
		return Result{}, true, fmt.Errorf("%w: status %d: %s", ErrServerError, resp.StatusCode, strings.TrimSpace(string(respBody)))

	default:
		return Result{}, false, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
}

// buildForm assembles the multipart request body: the audio file, the
// model name and the verbose_json response format.
func (c *HTTPClient) buildForm(filePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: open audio file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("transcribe: copy audio data: %w", err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return nil, "", fmt.Errorf("transcribe: write model field: %w", err)
	}
	if err := w.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("transcribe: write format field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("transcribe: close form: %w", err)
	}

	return body, w.FormDataContentType(), nil
}
