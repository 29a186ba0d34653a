package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	WebRequests        atomic.Int64
	RateLimited        atomic.Int64
	StreamListings     atomic.Int64
	VideoDownloads     atomic.Int64
	AudioDownloads     atomic.Int64
	DownloadErrors     atomic.Int64
	DownloadBytes      atomic.Int64
	TranscribeRequests atomic.Int64
	TranscribeAttempts atomic.Int64
	TranscribeLoading  atomic.Int64
	TranscribeErrors   atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	ArtifactsSwept     atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"web_requests":        metrics.WebRequests.Load(),
		"rate_limited":        metrics.RateLimited.Load(),
		"stream_listings":     metrics.StreamListings.Load(),
		"video_downloads":     metrics.VideoDownloads.Load(),
		"audio_downloads":     metrics.AudioDownloads.Load(),
		"download_errors":     metrics.DownloadErrors.Load(),
		"download_bytes":      metrics.DownloadBytes.Load(),
		"transcribe_requests": metrics.TranscribeRequests.Load(),
		"transcribe_attempts": metrics.TranscribeAttempts.Load(),
		"transcribe_loading":  metrics.TranscribeLoading.Load(),
		"transcribe_errors":   metrics.TranscribeErrors.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"artifacts_swept":     metrics.ArtifactsSwept.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"web_requests", "rate_limited",
		"stream_listings", "video_downloads", "audio_downloads",
		"download_errors", "download_bytes",
		"transcribe_requests", "transcribe_attempts", "transcribe_loading", "transcribe_errors",
		"llm_calls", "llm_errors",
		"artifacts_swept",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the webui package.
func IncrWebRequests() { metrics.WebRequests.Add(1) }
func IncrRateLimited() { metrics.RateLimited.Add(1) }

// Incrementors for the media package.
func IncrStreamListings()      { metrics.StreamListings.Add(1) }
func IncrVideoDownloads()      { metrics.VideoDownloads.Add(1) }
func IncrAudioDownloads()      { metrics.AudioDownloads.Add(1) }
func IncrDownloadErrors()      { metrics.DownloadErrors.Add(1) }
func AddDownloadBytes(n int64) { metrics.DownloadBytes.Add(n) }

// Incrementors for the whisper package.
func IncrTranscribeRequests() { metrics.TranscribeRequests.Add(1) }
func IncrTranscribeAttempts() { metrics.TranscribeAttempts.Add(1) }
func IncrTranscribeLoading()  { metrics.TranscribeLoading.Add(1) }
func IncrTranscribeErrors()   { metrics.TranscribeErrors.Add(1) }

// IncrArtifactsSwept counts artifacts removed by the store janitor.
func IncrArtifactsSwept(n int) { metrics.ArtifactsSwept.Add(int64(n)) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 30*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
