// go_transcribe is a YouTube download and transcription service.
//
// Serves an HTML form (Download Video / Download Audio / Transcribe) and the
// same actions as MCP tools: media_streams, media_download, media_transcribe.
// Transcription uses a hosted Whisper endpoint; the token comes from HF_TOKEN.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
	"github.com/anatolykoptev/go_transcribe/internal/engine/whisper"
	"github.com/anatolykoptev/go_transcribe/internal/toolserver"
	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
	"github.com/anatolykoptev/go_transcribe/internal/webui"
)

var version = "dev"

func main() {
	loadDotEnv()
	fc, err := engine.LoadFile(env.Str("CONFIG_FILE", ""))
	if err != nil {
		slog.Error("config file", slog.Any("error", err))
		os.Exit(1)
	}
	initEngine(fc)
	c := engine.Cfg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := artifact.NewStore(c.ArtifactDir, c.ArtifactTTL)
	if err != nil {
		slog.Error("artifact store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	go store.Run(ctx, c.ArtifactCleanupInterval)

	downloader := media.NewDownloader(media.NewYouTube(c.HTTPClient), store, c.DownloadRateLimit)
	transcriber := whisper.FromConfig(c)
	if transcriber.Token == "" {
		slog.Warn("HF_TOKEN not set, transcription will fail")
	}
	pipeline := toolutil.NewPipeline(downloader, store, transcriber, c.RequestTimeout)

	web, err := webui.New(pipeline, webui.Options{
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		TrustedProxies: c.TrustedProxies,
		Summaries:      pipeline.SummariesEnabled(),
		Metrics:        engine.FormatMetrics,
	})
	if err != nil {
		slog.Error("web ui init failed", slog.Any("error", err))
		os.Exit(1)
	}
	webDone := make(chan struct{})
	go func() {
		defer close(webDone)
		if err := web.Run(ctx, ":"+c.WebPort, c.RequestTimeout+time.Minute); err != nil {
			slog.Error("web ui failed", slog.Any("error", err))
		}
	}()

	slog.Info("starting go_transcribe",
		slog.String("web_port", c.WebPort),
		slog.String("mcp_port", c.MCPPort),
		slog.String("artifact_dir", c.ArtifactDir),
		slog.Bool("summaries", pipeline.SummariesEnabled()),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcribe",
		Version: version,
	}, nil)

	toolserver.RegisterTools(server, pipeline)
	slog.Info("tools registered", slog.Int("count", toolserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcribe",
		Version:      version,
		Port:         c.MCPPort,
		WriteTimeout: c.RequestTimeout + time.Minute,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}

	cancel()
	<-webDone
}

// loadDotEnv loads ENV_FILE (default .env) without overriding the environment.
func loadDotEnv() {
	path := env.Str("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("env file not loaded", slog.String("path", path), slog.Any("error", err))
	}
}

// initEngine builds the engine config: built-in defaults, overridden by the
// YAML file, overridden by the environment.
func initEngine(fc engine.FileConfig) {
	c := engine.Config{
		WebPort: env.Str("WEB_PORT", engine.Str(fc.WebPort, "8501")),
		MCPPort: env.Str("MCP_PORT", engine.Str(fc.MCPPort, "8892")),

		ArtifactDir:             env.Str("ARTIFACT_DIR", engine.Str(fc.Artifacts.Dir, "data/artifacts")),
		ArtifactTTL:             env.Duration("ARTIFACT_TTL", engine.Duration(fc.Artifacts.TTL, time.Hour)),
		ArtifactCleanupInterval: env.Duration("ARTIFACT_CLEANUP_INTERVAL", engine.Duration(fc.Artifacts.CleanupInterval, 5*time.Minute)),
		DownloadRateLimit:       int64(env.Int("DOWNLOAD_RATE_LIMIT", int(fc.Artifacts.RateLimit))),
		RequestTimeout:          env.Duration("REQUEST_TIMEOUT", engine.Duration(fc.RequestTimeout, 15*time.Minute)),

		WhisperURL:          env.Str("WHISPER_URL", engine.Str(fc.Whisper.URL, whisper.DefaultEndpoint)),
		HFToken:             env.Str("HF_TOKEN", fc.Whisper.Token),
		WhisperMaxAttempts:  env.Int("WHISPER_MAX_ATTEMPTS", engine.Int(fc.Whisper.MaxAttempts, whisper.DefaultMaxAttempts)),
		WhisperMaxWait:      env.Duration("WHISPER_MAX_WAIT", engine.Duration(fc.Whisper.MaxWait, 2*time.Minute)),
		WhisperMaxTotalWait: env.Duration("WHISPER_MAX_TOTAL_WAIT", engine.Duration(fc.Whisper.MaxTotalWait, 10*time.Minute)),

		RateLimitRPS:   env.Float("RATE_LIMIT_RPS", engine.Float(fc.RateLimit.RPS, 0.5)),
		RateLimitBurst: env.Int("RATE_LIMIT_BURST", engine.Int(fc.RateLimit.Burst, 5)),
		TrustedProxies: env.List("TRUSTED_PROXIES", strings.Join(fc.RateLimit.TrustedProxies, ",")),

		RedisURL:             env.Str("REDIS_URL", fc.Cache.RedisURL),
		CacheTTL:             env.Duration("CACHE_TTL", engine.Duration(fc.Cache.TTL, 30*time.Minute)),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", engine.Int(fc.Cache.MaxEntries, 500)),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		LLMAPIKey:          env.Str("LLM_API_KEY", fc.LLM.APIKey),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", engine.Str(fc.LLM.APIBase, "https://generativelanguage.googleapis.com/v1beta/openai")),
		LLMModel:           env.Str("LLM_MODEL", engine.Str(fc.LLM.Model, "gemini-2.5-flash")),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", engine.Float(fc.LLM.Temperature, 0.1)),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", engine.Int(fc.LLM.MaxTokens, 2048)),
		MaxContentChars:    env.Int("MAX_CONTENT_CHARS", 60000),

		HTTPClient: &http.Client{
			// Downloads and uploads are bounded by the request context instead.
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	} else {
		slog.Warn("LLM_API_KEY not set, transcript summaries disabled")
	}

	engine.Init(c)
	engine.InitCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}
