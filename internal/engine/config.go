package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	WebPort string
	MCPPort string

	ArtifactDir             string
	ArtifactTTL             time.Duration
	ArtifactCleanupInterval time.Duration
	DownloadRateLimit       int64 // bytes per second, 0 = unlimited
	RequestTimeout          time.Duration

	WhisperURL          string
	HFToken             string // bearer credential for the inference endpoint
	WhisperMaxAttempts  int
	WhisperMaxWait      time.Duration // cap on a single model-loading wait
	WhisperMaxTotalWait time.Duration // cap on cumulative model-loading waits

	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string // IPs/CIDRs allowed to set X-Forwarded-For

	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	MaxContentChars    int

	HTTPClient *http.Client
	LLMClient  *llm.Client // nil = transcript summaries disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (media, whisper, artifact).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
