package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted serves responses in order, repeating the last one.
func scripted(t *testing.T, calls *atomic.Int32, responses ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, responses[n])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func testClient(endpoint string) *Client {
	return &Client{
		Endpoint:    endpoint,
		Token:       "test-token",
		MaxAttempts: DefaultMaxAttempts,
		TimeUnit:    time.Millisecond,
	}
}

func TestTranscribeImmediateText(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"text":"hello"}`)

	text, err := testClient(srv.URL).Transcribe(context.Background(), audioFile(t))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTranscribeWaitsForLoadingModel(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"error":"Model is currently loading","estimated_time":2}`, `{"text":"done"}`)

	c := testClient(srv.URL)
	c.TimeUnit = 20 * time.Millisecond

	start := time.Now()
	text, err := c.Transcribe(context.Background(), audioFile(t))
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestTranscribeExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"estimated_time":1}`)

	_, err := testClient(srv.URL).Transcribe(context.Background(), audioFile(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Equal(t, int32(10), calls.Load())

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, ExhaustedMessage, terr.Payload["error"])
}

func TestTranscribeTerminalErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"error":"bad request"}`, `{"text":"never"}`)

	_, err := testClient(srv.URL).Transcribe(context.Background(), audioFile(t))
	assert.Equal(t, int32(1), calls.Load())

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, map[string]any{"error": "bad request"}, terr.Payload)
	assert.Equal(t, "bad request", terr.Message())
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
}

func TestTranscribeUnexpectedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>502 Bad Gateway</html>"},
		{"json array", `[{"text":"x"}]`},
		{"no text", `{"warnings":["x"]}`},
		{"text with error", `{"text":"partial","error":"boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := scripted(t, &calls, tt.body)
			_, err := testClient(srv.URL).Transcribe(context.Background(), audioFile(t))
			assert.ErrorIs(t, err, ErrTranscriptionFailed)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestTranscribeSendsAudioWithToken(t *testing.T) {
	var gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Transcribe(context.Background(), audioFile(t))
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "audio/mp4", gotType)
	assert.Equal(t, "fake audio bytes", string(gotBody))
}

func TestTranscribeMissingToken(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"text":"hello"}`)
	c := testClient(srv.URL)
	c.Token = ""

	_, err := c.Transcribe(context.Background(), audioFile(t))
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTranscribeMissingFile(t *testing.T) {
	_, err := testClient("http://127.0.0.1:0").Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTranscribeCapsSingleWait(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"estimated_time":3600}`, `{"text":"warm"}`)

	c := testClient(srv.URL)
	c.TimeUnit = time.Second
	c.MaxWait = 10 * time.Millisecond

	start := time.Now()
	text, err := c.Transcribe(context.Background(), audioFile(t))
	require.NoError(t, err)
	assert.Equal(t, "warm", text)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTranscribeCapsHugeEstimate(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"estimated_time":1e11}`, `{"text":"warm"}`)

	c := testClient(srv.URL)
	c.TimeUnit = time.Second
	c.MaxWait = 30 * time.Millisecond

	start := time.Now()
	text, err := c.Transcribe(context.Background(), audioFile(t))
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, "warm", text)
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "the capped wait must still happen")
	assert.Less(t, elapsed, 5*time.Second)
}

func TestTranscribeHugeEstimateExceedsBudget(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"estimated_time":1e11}`)

	c := testClient(srv.URL)
	c.TimeUnit = time.Second
	c.MaxTotalWait = 50 * time.Millisecond

	_, err := c.Transcribe(context.Background(), audioFile(t))
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTranscribeTotalWaitBudget(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"estimated_time":30}`)

	c := testClient(srv.URL)
	c.MaxTotalWait = 50 * time.Millisecond

	_, err := c.Transcribe(context.Background(), audioFile(t))
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTranscribeCancelDuringWait(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, `{"estimated_time":60}`)

	c := testClient(srv.URL)
	c.TimeUnit = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Transcribe(ctx, audioFile(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorMessageFallsBackToJSON(t *testing.T) {
	e := &Error{Payload: map[string]any{"detail": "quota"}}
	assert.Equal(t, `{"detail":"quota"}`, e.Message())
	assert.Equal(t, `transcription failed: {"detail":"quota"}`, e.Error())
}

func TestAudioContentType(t *testing.T) {
	assert.Equal(t, "audio/mp4", audioContentType("a.MP4"))
	assert.Equal(t, "audio/webm", audioContentType("a.webm"))
	assert.Equal(t, "application/octet-stream", audioContentType("a"))
}
