package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML config file. Values act as defaults;
// environment variables still win.
type FileConfig struct {
	WebPort string `yaml:"web_port"`
	MCPPort string `yaml:"mcp_port"`

	Artifacts struct {
		Dir             string `yaml:"dir"`
		TTL             string `yaml:"ttl"`
		CleanupInterval string `yaml:"cleanup_interval"`
		RateLimit       int64  `yaml:"rate_limit"`
	} `yaml:"artifacts"`

	RequestTimeout string `yaml:"request_timeout"`

	Whisper struct {
		URL          string `yaml:"url"`
		Token        string `yaml:"token"`
		MaxAttempts  int    `yaml:"max_attempts"`
		MaxWait      string `yaml:"max_wait"`
		MaxTotalWait string `yaml:"max_total_wait"`
	} `yaml:"whisper"`

	RateLimit struct {
		RPS            float64  `yaml:"rps"`
		Burst          int      `yaml:"burst"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"rate_limit"`

	Cache struct {
		RedisURL   string `yaml:"redis_url"`
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
	} `yaml:"cache"`

	LLM struct {
		APIKey      string  `yaml:"api_key"`
		APIBase     string  `yaml:"api_base"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"llm"`
}

// LoadFile reads a YAML config file. An empty path or a missing file yields
// a zero FileConfig, so every default falls through to the built-in value.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := fc.validate(); err != nil {
		return fc, fmt.Errorf("config %s: %w", path, err)
	}
	return fc, nil
}

// validate checks every duration string in the file.
func (fc FileConfig) validate() error {
	for name, v := range map[string]string{
		"artifacts.ttl":              fc.Artifacts.TTL,
		"artifacts.cleanup_interval": fc.Artifacts.CleanupInterval,
		"request_timeout":            fc.RequestTimeout,
		"whisper.max_wait":           fc.Whisper.MaxWait,
		"whisper.max_total_wait":     fc.Whisper.MaxTotalWait,
		"cache.ttl":                  fc.Cache.TTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Str returns v when set, otherwise def.
func Str(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Int returns v when positive, otherwise def.
func Int(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Float returns v when positive, otherwise def.
func Float(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// Duration parses v, falling back to def when v is empty or invalid.
func Duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
