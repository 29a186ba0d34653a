// Package whisper calls a hosted speech-to-text inference endpoint and waits
// out model cold starts.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
)

// DefaultEndpoint is the hosted Whisper large-v3 model.
const DefaultEndpoint = "https://api-inference.huggingface.co/models/openai/whisper-large-v3"

// DefaultMaxAttempts bounds the number of POSTs per transcription.
const DefaultMaxAttempts = 10

// ExhaustedMessage is the terminal payload error when every attempt saw a loading model.
const ExhaustedMessage = "Failed to load model after multiple attempts"

const maxBodyBytes = 1 << 20

// ErrTranscriptionFailed is wrapped by every terminal *Error.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Error is a terminal transcription outcome carrying the endpoint payload.
type Error struct {
	Payload map[string]any
	cause   error
}

func (e *Error) Error() string {
	return ErrTranscriptionFailed.Error() + ": " + e.Message()
}

// Unwrap exposes ErrTranscriptionFailed and the underlying cause, if any.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrTranscriptionFailed, e.cause}
	}
	return []error{ErrTranscriptionFailed}
}

// Message returns the payload's "error" field, or the payload as JSON.
func (e *Error) Message() string {
	if s, ok := e.Payload["error"].(string); ok && s != "" {
		return s
	}
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Sprint(e.Payload)
	}
	return string(b)
}

func terminal(msg string, cause error) *Error {
	return &Error{Payload: map[string]any{"error": msg}, cause: cause}
}

// Client posts audio files to Endpoint.
type Client struct {
	Endpoint     string
	Token        string
	HTTP         *http.Client
	MaxAttempts  int
	MaxWait      time.Duration // cap on a single model-loading wait, 0 = none
	MaxTotalWait time.Duration // cap on cumulative waiting, 0 = none
	TimeUnit     time.Duration // length of one estimated_time unit, default 1s
}

// FromConfig builds a Client from the engine configuration.
func FromConfig(c *engine.Config) *Client {
	return &Client{
		Endpoint:     c.WhisperURL,
		Token:        c.HFToken,
		HTTP:         c.HTTPClient,
		MaxAttempts:  c.WhisperMaxAttempts,
		MaxWait:      c.WhisperMaxWait,
		MaxTotalWait: c.WhisperMaxTotalWait,
	}
}

// Transcribe uploads the file at path and returns the transcript text.
// A loading model is waited for and retried; any other non-text response is
// returned as an *Error without retry.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	engine.IncrTranscribeRequests()
	text, err := c.transcribe(ctx, path)
	if err != nil {
		engine.IncrTranscribeErrors()
		slog.Warn("whisper: transcription failed", slog.String("path", filepath.Base(path)), slog.Any("error", err))
		return "", err
	}
	return text, nil
}

func (c *Client) transcribe(ctx context.Context, path string) (string, error) {
	if c.Token == "" {
		return "", terminal("transcription API token is not configured", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", terminal("cannot read audio file", err)
	}
	contentType := audioContentType(path)

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	rc := engine.RetryConfig{
		MaxRetries:   attempts - 1,
		MaxWait:      c.MaxWait,
		MaxTotalWait: c.MaxTotalWait,
		Retryable:    engine.IsRetryAfter,
	}
	text, err := engine.RetryDo(ctx, rc, func() (string, error) {
		return c.attempt(ctx, data, contentType)
	})
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, engine.ErrWaitBudgetExceeded):
		return "", terminal(fmt.Sprintf("Model still loading after waiting %s", c.MaxTotalWait), err)
	case engine.IsRetryAfter(err):
		return "", terminal(ExhaustedMessage, nil)
	}
	return "", err
}

// attempt performs one POST and classifies the response.
func (c *Client) attempt(ctx context.Context, data []byte, contentType string) (string, error) {
	engine.IncrTranscribeAttempts()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", terminal("invalid transcription endpoint", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", terminal("transcription request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", terminal("reading transcription response failed", err)
	}
	return c.classify(resp.StatusCode, body)
}

// classify maps a response body to text, a loading wait, or a terminal error.
func (c *Client) classify(status int, body []byte) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return "", &Error{Payload: map[string]any{
			"error":  engine.TruncateRunes(strings.TrimSpace(string(body)), 300, "..."),
			"status": status,
		}}
	}

	if _, failed := payload["error"]; !failed {
		if text, ok := payload["text"].(string); ok {
			return text, nil
		}
	}

	if est, ok := payload["estimated_time"].(float64); ok {
		engine.IncrTranscribeLoading()
		wait := engine.ScaleDuration(est, c.timeUnit())
		slog.Info("whisper: model loading", slog.Float64("estimated_time", est), slog.Duration("wait", wait))
		return "", &engine.RetryAfterError{Wait: wait, Err: errors.New("model loading")}
	}

	return "", &Error{Payload: payload}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) timeUnit() time.Duration {
	if c.TimeUnit > 0 {
		return c.TimeUnit
	}
	return time.Second
}

func audioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	}
	return "application/octet-stream"
}
